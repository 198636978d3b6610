package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/sar-portal-api/internal/models"
	"github.com/campuslink/sar-portal-api/internal/service"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
	"github.com/campuslink/sar-portal-api/pkg/response"
)

// RecordHandler exposes semester record endpoints.
type RecordHandler struct {
	records *service.RecordService
}

// NewRecordHandler constructs RecordHandler.
func NewRecordHandler(records *service.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// ListByStudent godoc
// @Summary List semester records for a student
// @Tags Records
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/records [get]
func (h *RecordHandler) ListByStudent(c *gin.Context) {
	records, err := h.records.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Get godoc
// @Summary Get one semester record
// @Tags Records
// @Produce json
// @Param recordId path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/{recordId} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	record, err := h.records.Get(c.Request.Context(), c.Param("recordId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Create a semester record
// @Tags Records
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body models.AcademicRecord true "Record payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/records [post]
func (h *RecordHandler) Create(c *gin.Context) {
	var record models.AcademicRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return
	}
	record.StudentID = c.Param("id")

	created, err := h.records.Create(c.Request.Context(), &record, h.actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update a semester record
// @Tags Records
// @Accept json
// @Produce json
// @Param recordId path string true "Record ID"
// @Param payload body models.AcademicRecord true "Record payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /records/{recordId} [put]
func (h *RecordHandler) Update(c *gin.Context) {
	var record models.AcademicRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return
	}
	record.ID = c.Param("recordId")

	updated, err := h.records.Update(c.Request.Context(), &record, h.actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Recompute godoc
// @Summary Recompute mark totals for a record
// @Description Overwrites every subject total with internal plus external,
// @Description treating missing marks as zero.
// @Tags Records
// @Produce json
// @Param recordId path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/{recordId}/recompute [post]
func (h *RecordHandler) Recompute(c *gin.Context) {
	record, err := h.records.Recompute(c.Request.Context(), c.Param("recordId"), h.actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete a semester record
// @Tags Records
// @Produce json
// @Param recordId path string true "Record ID"
// @Success 204
// @Router /records/{recordId} [delete]
func (h *RecordHandler) Delete(c *gin.Context) {
	if err := h.records.Delete(c.Request.Context(), c.Param("recordId"), h.actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *RecordHandler) actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
