package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/sar-portal-api/internal/models"
	"github.com/campuslink/sar-portal-api/internal/service"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
	"github.com/campuslink/sar-portal-api/pkg/response"
)

// PortfolioHandler exposes internship and achievement endpoints.
type PortfolioHandler struct {
	portfolio *service.PortfolioService
}

// NewPortfolioHandler constructs PortfolioHandler.
func NewPortfolioHandler(portfolio *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio}
}

// ListInternships godoc
// @Summary List internships for a student
// @Tags Portfolio
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/internships [get]
func (h *PortfolioHandler) ListInternships(c *gin.Context) {
	internships, err := h.portfolio.ListInternships(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, internships, nil)
}

// CreateInternship godoc
// @Summary Add an internship
// @Tags Portfolio
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.Internship true "Internship payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/internships [post]
func (h *PortfolioHandler) CreateInternship(c *gin.Context) {
	var internship models.Internship
	if err := c.ShouldBindJSON(&internship); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid internship payload"))
		return
	}
	internship.StudentID = c.Param("id")

	created, err := h.portfolio.CreateInternship(c.Request.Context(), &internship)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateInternship godoc
// @Summary Update an internship
// @Tags Portfolio
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param entryId path string true "Internship ID"
// @Param payload body models.Internship true "Internship payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/internships/{entryId} [put]
func (h *PortfolioHandler) UpdateInternship(c *gin.Context) {
	var internship models.Internship
	if err := c.ShouldBindJSON(&internship); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid internship payload"))
		return
	}
	internship.ID = c.Param("entryId")
	internship.StudentID = c.Param("id")

	updated, err := h.portfolio.UpdateInternship(c.Request.Context(), &internship)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// DeleteInternship godoc
// @Summary Delete an internship
// @Tags Portfolio
// @Produce json
// @Param id path string true "Student ID"
// @Param entryId path string true "Internship ID"
// @Success 204
// @Router /students/{id}/internships/{entryId} [delete]
func (h *PortfolioHandler) DeleteInternship(c *gin.Context) {
	if err := h.portfolio.DeleteInternship(c.Request.Context(), c.Param("entryId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListAchievements godoc
// @Summary List achievements for a student
// @Tags Portfolio
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/achievements [get]
func (h *PortfolioHandler) ListAchievements(c *gin.Context) {
	achievements, err := h.portfolio.ListAchievements(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, achievements, nil)
}

// CreateAchievement godoc
// @Summary Add an achievement
// @Tags Portfolio
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.Achievement true "Achievement payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/achievements [post]
func (h *PortfolioHandler) CreateAchievement(c *gin.Context) {
	var achievement models.Achievement
	if err := c.ShouldBindJSON(&achievement); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid achievement payload"))
		return
	}
	achievement.StudentID = c.Param("id")

	created, err := h.portfolio.CreateAchievement(c.Request.Context(), &achievement)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateAchievement godoc
// @Summary Update an achievement
// @Tags Portfolio
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param entryId path string true "Achievement ID"
// @Param payload body models.Achievement true "Achievement payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/achievements/{entryId} [put]
func (h *PortfolioHandler) UpdateAchievement(c *gin.Context) {
	var achievement models.Achievement
	if err := c.ShouldBindJSON(&achievement); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid achievement payload"))
		return
	}
	achievement.ID = c.Param("entryId")
	achievement.StudentID = c.Param("id")

	updated, err := h.portfolio.UpdateAchievement(c.Request.Context(), &achievement)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// DeleteAchievement godoc
// @Summary Delete an achievement
// @Tags Portfolio
// @Produce json
// @Param id path string true "Student ID"
// @Param entryId path string true "Achievement ID"
// @Success 204
// @Router /students/{id}/achievements/{entryId} [delete]
func (h *PortfolioHandler) DeleteAchievement(c *gin.Context) {
	if err := h.portfolio.DeleteAchievement(c.Request.Context(), c.Param("entryId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
