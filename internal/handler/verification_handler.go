package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/sar-portal-api/internal/models"
	"github.com/campuslink/sar-portal-api/internal/service"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
	"github.com/campuslink/sar-portal-api/pkg/response"
)

// VerificationHandler exposes the review session workflow.
type VerificationHandler struct {
	verifications *service.VerificationService
	metrics       *service.MetricsService
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(verifications *service.VerificationService, metrics *service.MetricsService) *VerificationHandler {
	return &VerificationHandler{verifications: verifications, metrics: metrics}
}

type verdictRequest struct {
	Section string `json:"section" binding:"required"`
	Field   string `json:"field" binding:"required"`
	Correct *bool  `json:"correct" binding:"required"`
}

type sectionRequest struct {
	Section string `json:"section" binding:"required"`
}

type declineRequest struct {
	Reason string `json:"reason"`
}

// Open godoc
// @Summary Open or resume a review session
// @Tags Verification
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/verification [post]
func (h *VerificationHandler) Open(c *gin.Context) {
	view, err := h.verifications.OpenSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Get godoc
// @Summary Get review session state
// @Tags Verification
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/verification [get]
func (h *VerificationHandler) Get(c *gin.Context) {
	view, err := h.verifications.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// SetVerdict godoc
// @Summary Record one field verdict
// @Tags Verification
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body verdictRequest true "Verdict payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/verification/verdicts [put]
func (h *VerificationHandler) SetVerdict(c *gin.Context) {
	var req verdictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verdict payload"))
		return
	}
	view, err := h.verifications.SetVerdict(c.Request.Context(), c.Param("id"), models.Section(req.Section), req.Field, *req.Correct)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// VerifySection godoc
// @Summary Mark every field of a section correct
// @Tags Verification
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body sectionRequest true "Section payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/verification/verify-section [post]
func (h *VerificationHandler) VerifySection(c *gin.Context) {
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid section payload"))
		return
	}
	view, err := h.verifications.VerifySection(c.Request.Context(), c.Param("id"), models.Section(req.Section))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Advance godoc
// @Summary Advance to the next section
// @Description Moving past the last section finalizes the session and records
// @Description the decision.
// @Tags Verification
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /students/{id}/verification/advance [post]
func (h *VerificationHandler) Advance(c *gin.Context) {
	view, err := h.verifications.Advance(c.Request.Context(), c.Param("id"), h.reviewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.recordDecision(view)
	response.JSON(c, http.StatusOK, view, nil)
}

// Retreat godoc
// @Summary Go back one section
// @Tags Verification
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/verification/retreat [post]
func (h *VerificationHandler) Retreat(c *gin.Context) {
	view, err := h.verifications.Retreat(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Finalize godoc
// @Summary Finalize immediately over the recorded verdicts
// @Tags Verification
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/verification/finalize [post]
func (h *VerificationHandler) Finalize(c *gin.Context) {
	view, err := h.verifications.Finalize(c.Request.Context(), c.Param("id"), h.reviewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.recordDecision(view)
	response.JSON(c, http.StatusOK, view, nil)
}

// ApproveAll godoc
// @Summary Approve every field and finalize
// @Tags Verification
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/verification/approve-all [post]
func (h *VerificationHandler) ApproveAll(c *gin.Context) {
	view, err := h.verifications.ApproveAll(c.Request.Context(), c.Param("id"), h.reviewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.recordDecision(view)
	response.JSON(c, http.StatusOK, view, nil)
}

// DeclineAll godoc
// @Summary Decline every field and finalize
// @Tags Verification
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body declineRequest true "Decline payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/verification/decline-all [post]
func (h *VerificationHandler) DeclineAll(c *gin.Context) {
	var req declineRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decline payload"))
		return
	}
	view, err := h.verifications.DeclineAll(c.Request.Context(), c.Param("id"), h.reviewerID(c), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.recordDecision(view)
	response.JSON(c, http.StatusOK, view, nil)
}

// Outcome godoc
// @Summary Get the persisted verification outcome
// @Tags Verification
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/verification/outcome [get]
func (h *VerificationHandler) Outcome(c *gin.Context) {
	outcome, err := h.verifications.Outcome(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// History godoc
// @Summary List the calling reviewer's past decisions
// @Tags Verification
// @Produce json
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {object} response.Envelope
// @Router /verifications/history [get]
func (h *VerificationHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	history, err := h.verifications.ReviewerHistory(c.Request.Context(), h.reviewerID(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

func (h *VerificationHandler) reviewerID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func (h *VerificationHandler) recordDecision(view *service.SessionView) {
	if h.metrics == nil || view == nil || view.Outcome == nil {
		return
	}
	h.metrics.RecordDecision(string(view.Outcome.Status))
}
