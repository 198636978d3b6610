package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/sar-portal-api/internal/models"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
)

type stubVerificationStudents struct {
	student    *models.Student
	lastStatus models.StudentStatus
}

func (s *stubVerificationStudents) FindByID(context.Context, string) (*models.Student, error) {
	if s.student == nil {
		return nil, sql.ErrNoRows
	}
	return s.student, nil
}

func (s *stubVerificationStudents) UpdateStatus(_ context.Context, _ string, status models.StudentStatus) error {
	s.lastStatus = status
	s.student.Status = status
	return nil
}

type stubOutcomeStore struct {
	saved         *models.VerificationOutcome
	savedVerdicts models.VerdictMap
	saveFailures  int
	byReviewer    []models.VerificationOutcome
}

func (s *stubOutcomeStore) SaveOutcome(_ context.Context, outcome *models.VerificationOutcome, verdicts models.VerdictMap) error {
	if s.saveFailures > 0 {
		s.saveFailures--
		return errors.New("outcome store unavailable")
	}
	s.saved = outcome
	s.savedVerdicts = verdicts
	return nil
}

func (s *stubOutcomeStore) FindLatestByStudent(context.Context, string) (*models.VerificationOutcome, models.VerdictMap, error) {
	if s.saved == nil {
		return nil, nil, sql.ErrNoRows
	}
	return s.saved, s.savedVerdicts, nil
}

func (s *stubOutcomeStore) ListByReviewer(context.Context, string, int) ([]models.VerificationOutcome, error) {
	return s.byReviewer, nil
}

type stubNotifier struct {
	notified []*models.VerificationOutcome
}

func (s *stubNotifier) NotifyDecision(_ *models.Student, outcome *models.VerificationOutcome) {
	s.notified = append(s.notified, outcome)
}

func pendingStudent() *models.Student {
	return &models.Student{ID: "s-1", Status: models.StudentStatusPending, FirstName: "Asha", Email: "asha@example.com"}
}

func newTestVerificationService(students *stubVerificationStudents, outcomes *stubOutcomeStore, notifier *stubNotifier) *VerificationService {
	var n decisionNotifier
	if notifier != nil {
		n = notifier
	}
	return NewVerificationService(students, outcomes, nil, n, nil, nil)
}

func TestVerificationFlowApproves(t *testing.T) {
	students := &stubVerificationStudents{student: pendingStudent()}
	outcomes := &stubOutcomeStore{}
	notifier := &stubNotifier{}
	svc := newTestVerificationService(students, outcomes, notifier)
	ctx := context.Background()

	view, err := svc.OpenSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionReviewing, view.State)
	assert.Equal(t, models.SectionPersonal, view.CurrentSection)

	for _, section := range models.SectionOrder {
		_, err = svc.VerifySection(ctx, "s-1", section)
		require.NoError(t, err)
		view, err = svc.Advance(ctx, "s-1", "reviewer-1")
		require.NoError(t, err)
	}

	assert.Equal(t, models.SessionFinalized, view.State)
	require.NotNil(t, outcomes.saved)
	assert.Equal(t, models.VerificationApproved, outcomes.saved.Status)
	assert.Equal(t, models.StudentStatusApproved, students.lastStatus)
	require.Len(t, notifier.notified, 1)

	// The in-memory session is gone once the decision is durable.
	_, err = svc.GetSession(ctx, "s-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestVerificationSingleBadFieldDeclines(t *testing.T) {
	students := &stubVerificationStudents{student: pendingStudent()}
	outcomes := &stubOutcomeStore{}
	svc := newTestVerificationService(students, outcomes, nil)
	ctx := context.Background()

	_, err := svc.OpenSession(ctx, "s-1")
	require.NoError(t, err)

	for _, section := range models.SectionOrder {
		_, err = svc.VerifySection(ctx, "s-1", section)
		require.NoError(t, err)
		if section == models.SectionDocuments {
			_, err = svc.SetVerdict(ctx, "s-1", section, "photo", false)
			require.NoError(t, err)
		}
		_, err = svc.Advance(ctx, "s-1", "reviewer-1")
		require.NoError(t, err)
	}

	require.NotNil(t, outcomes.saved)
	assert.Equal(t, models.VerificationDeclined, outcomes.saved.Status)
	assert.Equal(t, []models.FieldRef{{Section: models.SectionDocuments, Field: "photo"}}, outcomes.saved.DeclinedFields)
	assert.Equal(t, models.StudentStatusDeclined, students.lastStatus)
}

func TestVerificationAdvanceGated(t *testing.T) {
	students := &stubVerificationStudents{student: pendingStudent()}
	svc := newTestVerificationService(students, &stubOutcomeStore{}, nil)
	ctx := context.Background()

	_, err := svc.OpenSession(ctx, "s-1")
	require.NoError(t, err)

	_, err = svc.Advance(ctx, "s-1", "reviewer-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSectionIncomplete.Code, appErrors.FromError(err).Code)
}

func TestVerificationDeclineAllKeepsReasonOnlyWithoutVerdicts(t *testing.T) {
	students := &stubVerificationStudents{student: pendingStudent()}
	outcomes := &stubOutcomeStore{}
	svc := newTestVerificationService(students, outcomes, nil)
	ctx := context.Background()

	_, err := svc.OpenSession(ctx, "s-1")
	require.NoError(t, err)
	_, err = svc.DeclineAll(ctx, "s-1", "reviewer-1", "submitted someone else's documents")
	require.NoError(t, err)

	require.NotNil(t, outcomes.saved)
	assert.Equal(t, models.VerificationDeclined, outcomes.saved.Status)
	assert.Equal(t, "submitted someone else's documents", outcomes.saved.Reason)

	// With at least one recorded verdict the per-field trail explains the
	// decline and the blanket reason is dropped.
	students2 := &stubVerificationStudents{student: pendingStudent()}
	outcomes2 := &stubOutcomeStore{}
	svc2 := newTestVerificationService(students2, outcomes2, nil)

	_, err = svc2.OpenSession(ctx, "s-1")
	require.NoError(t, err)
	_, err = svc2.SetVerdict(ctx, "s-1", models.SectionPersonal, "phone", false)
	require.NoError(t, err)
	_, err = svc2.DeclineAll(ctx, "s-1", "reviewer-1", "ignored reason")
	require.NoError(t, err)
	assert.Empty(t, outcomes2.saved.Reason)
}

func TestVerificationFinalizeNowPartial(t *testing.T) {
	students := &stubVerificationStudents{student: pendingStudent()}
	outcomes := &stubOutcomeStore{}
	svc := newTestVerificationService(students, outcomes, nil)
	ctx := context.Background()

	_, err := svc.OpenSession(ctx, "s-1")
	require.NoError(t, err)
	_, err = svc.SetVerdict(ctx, "s-1", models.SectionPersonal, "first_name", true)
	require.NoError(t, err)

	view, err := svc.Finalize(ctx, "s-1", "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionFinalized, view.State)
	assert.Equal(t, models.VerificationApproved, outcomes.saved.Status)
}

func TestVerificationDecidedProfileOpensFinalized(t *testing.T) {
	student := pendingStudent()
	student.Status = models.StudentStatusDeclined
	students := &stubVerificationStudents{student: student}
	outcomes := &stubOutcomeStore{saved: &models.VerificationOutcome{
		StudentID: "s-1",
		Status:    models.VerificationDeclined,
	}}
	svc := newTestVerificationService(students, outcomes, nil)

	view, err := svc.OpenSession(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionFinalized, view.State)
	require.NotNil(t, view.Outcome)
	assert.Equal(t, models.VerificationDeclined, view.Outcome.Status)

	_, err = svc.SetVerdict(context.Background(), "s-1", models.SectionPersonal, "phone", true)
	assert.ErrorIs(t, err, appErrors.ErrSessionFinalized)
}

func TestVerificationFinalizeRetriesAfterStoreFailure(t *testing.T) {
	students := &stubVerificationStudents{student: pendingStudent()}
	outcomes := &stubOutcomeStore{saveFailures: 1}
	svc := newTestVerificationService(students, outcomes, nil)
	ctx := context.Background()

	_, err := svc.OpenSession(ctx, "s-1")
	require.NoError(t, err)
	_, err = svc.SetVerdict(ctx, "s-1", models.SectionPersonal, "first_name", true)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, "s-1", "reviewer-1")
	require.Error(t, err)
	assert.Nil(t, outcomes.saved)
	assert.Empty(t, students.lastStatus)

	// The session reopened instead of stranding itself finalized, so the
	// reviewer can simply try again.
	view, err := svc.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionReviewing, view.State)

	view, err = svc.Finalize(ctx, "s-1", "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionFinalized, view.State)
	require.NotNil(t, outcomes.saved)
	assert.Equal(t, models.VerificationApproved, outcomes.saved.Status)
	assert.Equal(t, models.StudentStatusApproved, students.lastStatus)
}

func TestVerificationDeclineAllRetryKeepsReason(t *testing.T) {
	students := &stubVerificationStudents{student: pendingStudent()}
	outcomes := &stubOutcomeStore{saveFailures: 1}
	svc := newTestVerificationService(students, outcomes, nil)
	ctx := context.Background()

	_, err := svc.OpenSession(ctx, "s-1")
	require.NoError(t, err)
	_, err = svc.DeclineAll(ctx, "s-1", "reviewer-1", "documents unreadable")
	require.Error(t, err)

	// The failed attempt rolled its seeded verdicts back, so the retry is
	// still a blanket decline and keeps its reason.
	_, err = svc.DeclineAll(ctx, "s-1", "reviewer-1", "documents unreadable")
	require.NoError(t, err)
	require.NotNil(t, outcomes.saved)
	assert.Equal(t, models.VerificationDeclined, outcomes.saved.Status)
	assert.Equal(t, "documents unreadable", outcomes.saved.Reason)
}

func TestVerificationReviewerHistory(t *testing.T) {
	outcomes := &stubOutcomeStore{byReviewer: []models.VerificationOutcome{
		{StudentID: "s-2", Status: models.VerificationDeclined, ReviewedBy: "reviewer-1"},
		{StudentID: "s-1", Status: models.VerificationApproved, ReviewedBy: "reviewer-1"},
	}}
	svc := newTestVerificationService(&stubVerificationStudents{}, outcomes, nil)

	history, err := svc.ReviewerHistory(context.Background(), "reviewer-1", 50)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "s-2", history[0].StudentID)
}

func TestVerificationOpenSessionUnknownStudent(t *testing.T) {
	svc := newTestVerificationService(&stubVerificationStudents{}, &stubOutcomeStore{}, nil)
	_, err := svc.OpenSession(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
