package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/sar-portal-api/internal/service"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
	"github.com/campuslink/sar-portal-api/pkg/response"
)

// BookletHandler exposes SAR booklet export and download.
type BookletHandler struct {
	booklets *service.BookletService
}

// NewBookletHandler constructs BookletHandler.
func NewBookletHandler(booklets *service.BookletService) *BookletHandler {
	return &BookletHandler{booklets: booklets}
}

// Export godoc
// @Summary Export the SAR booklet
// @Description Renders the profile, records and portfolio into a PDF or CSV
// @Description and returns a signed download token.
// @Tags Booklet
// @Produce json
// @Param id path string true "Student ID"
// @Param format query string false "Export format (pdf or csv)" default(pdf)
// @Success 200 {object} response.Envelope
// @Router /students/{id}/booklet [post]
func (h *BookletHandler) Export(c *gin.Context) {
	format := service.BookletFormat(c.DefaultQuery("format", string(service.BookletFormatPDF)))
	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}

	export, err := h.booklets.Export(c.Request.Context(), c.Param("id"), format, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, export, nil)
}

// Download godoc
// @Summary Download an exported booklet
// @Tags Booklet
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Failure 401 {object} response.Envelope
// @Router /booklets/download [get]
func (h *BookletHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, relPath, err := h.booklets.Resolve(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read booklet"))
		return
	}

	mime := "application/octet-stream"
	switch filepath.Ext(relPath) {
	case ".pdf":
		mime = "application/pdf"
	case ".csv":
		mime = "text/csv"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(relPath)))
	c.DataFromReader(http.StatusOK, info.Size(), mime, file, nil)
}
