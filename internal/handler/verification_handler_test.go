package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/sar-portal-api/internal/middleware"
	"github.com/campuslink/sar-portal-api/internal/models"
	"github.com/campuslink/sar-portal-api/internal/service"
)

type verificationStudentsStub struct {
	student       *models.Student
	statusUpdates []models.StudentStatus
}

func (s *verificationStudentsStub) FindByID(_ context.Context, _ string) (*models.Student, error) {
	return s.student, nil
}

func (s *verificationStudentsStub) UpdateStatus(_ context.Context, _ string, status models.StudentStatus) error {
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}

type outcomeStoreStub struct {
	saved      *models.VerificationOutcome
	byReviewer []models.VerificationOutcome
}

func (s *outcomeStoreStub) SaveOutcome(_ context.Context, outcome *models.VerificationOutcome, _ models.VerdictMap) error {
	s.saved = outcome
	return nil
}

func (s *outcomeStoreStub) FindLatestByStudent(_ context.Context, _ string) (*models.VerificationOutcome, models.VerdictMap, error) {
	if s.saved == nil {
		return nil, nil, sql.ErrNoRows
	}
	return s.saved, models.VerdictMap{}, nil
}

func (s *outcomeStoreStub) ListByReviewer(_ context.Context, _ string, _ int) ([]models.VerificationOutcome, error) {
	return s.byReviewer, nil
}

func newVerificationTestContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "rev-1", Role: models.RoleReviewer})
	return c, w
}

func newVerificationHandlerUnderTest(students *verificationStudentsStub, outcomes *outcomeStoreStub) *VerificationHandler {
	svc := service.NewVerificationService(students, outcomes, nil, nil, nil, nil)
	return NewVerificationHandler(svc, nil)
}

func TestVerificationHandlerApproveAll(t *testing.T) {
	students := &verificationStudentsStub{student: &models.Student{ID: "stu-1", Status: models.StudentStatusPending}}
	outcomes := &outcomeStoreStub{}
	handler := newVerificationHandlerUnderTest(students, outcomes)

	c, w := newVerificationTestContext(t, http.MethodPost, "/students/stu-1/verification", nil)
	handler.Open(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newVerificationTestContext(t, http.MethodPost, "/students/stu-1/verification/approve-all", nil)
	handler.ApproveAll(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data service.SessionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.Outcome)
	assert.Equal(t, models.VerificationApproved, envelope.Data.Outcome.Status)
	assert.Equal(t, "rev-1", envelope.Data.Outcome.ReviewedBy)
	require.NotNil(t, outcomes.saved)
	assert.Equal(t, []models.StudentStatus{models.StudentStatusApproved}, students.statusUpdates)
}

func TestVerificationHandlerAdvanceIncompleteSection(t *testing.T) {
	students := &verificationStudentsStub{student: &models.Student{ID: "stu-1", Status: models.StudentStatusPending}}
	handler := newVerificationHandlerUnderTest(students, &outcomeStoreStub{})

	c, w := newVerificationTestContext(t, http.MethodPost, "/students/stu-1/verification", nil)
	handler.Open(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newVerificationTestContext(t, http.MethodPost, "/students/stu-1/verification/advance", nil)
	handler.Advance(c)
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Empty(t, students.statusUpdates)
}

func TestVerificationHandlerSetVerdictInvalidBody(t *testing.T) {
	handler := newVerificationHandlerUnderTest(
		&verificationStudentsStub{student: &models.Student{ID: "stu-1", Status: models.StudentStatusPending}},
		&outcomeStoreStub{},
	)

	c, w := newVerificationTestContext(t, http.MethodPut, "/students/stu-1/verification/verdicts", []byte(`{"section":"PERSONAL"`))
	handler.SetVerdict(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerificationHandlerDeclineAllWithReason(t *testing.T) {
	students := &verificationStudentsStub{student: &models.Student{ID: "stu-1", Status: models.StudentStatusPending}}
	outcomes := &outcomeStoreStub{}
	handler := newVerificationHandlerUnderTest(students, outcomes)

	c, w := newVerificationTestContext(t, http.MethodPost, "/students/stu-1/verification", nil)
	handler.Open(c)
	require.Equal(t, http.StatusOK, w.Code)

	payload, _ := json.Marshal(declineRequest{Reason: "documents unreadable"})
	c, w = newVerificationTestContext(t, http.MethodPost, "/students/stu-1/verification/decline-all", payload)
	handler.DeclineAll(c)
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, outcomes.saved)
	assert.Equal(t, models.VerificationDeclined, outcomes.saved.Status)
	assert.Equal(t, "documents unreadable", outcomes.saved.Reason)
	assert.Equal(t, []models.StudentStatus{models.StudentStatusDeclined}, students.statusUpdates)
}

func TestVerificationHandlerHistory(t *testing.T) {
	outcomes := &outcomeStoreStub{byReviewer: []models.VerificationOutcome{
		{StudentID: "stu-2", Status: models.VerificationApproved, ReviewedBy: "rev-1"},
	}}
	handler := newVerificationHandlerUnderTest(&verificationStudentsStub{}, outcomes)

	c, w := newVerificationTestContext(t, http.MethodGet, "/verifications/history?limit=10", nil)
	handler.History(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.VerificationOutcome `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "stu-2", envelope.Data[0].StudentID)
}
