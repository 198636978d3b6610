package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/sar-portal-api/internal/service"
	"github.com/campuslink/sar-portal-api/pkg/response"
)

// CompletionHandler exposes the profile completion score.
type CompletionHandler struct {
	completion *service.CompletionService
}

// NewCompletionHandler constructs CompletionHandler.
func NewCompletionHandler(completion *service.CompletionService) *CompletionHandler {
	return &CompletionHandler{completion: completion}
}

// Score godoc
// @Summary Get the profile completion score
// @Description The score counts filled sections against the expected set for
// @Description the student's current semester and is cached briefly.
// @Tags Completion
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/completion [get]
func (h *CompletionHandler) Score(c *gin.Context) {
	score, err := h.completion.Score(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}
