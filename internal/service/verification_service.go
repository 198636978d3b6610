package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/campuslink/sar-portal-api/internal/models"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type verificationStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error
}

type outcomeStore interface {
	SaveOutcome(ctx context.Context, outcome *models.VerificationOutcome, verdicts models.VerdictMap) error
	FindLatestByStudent(ctx context.Context, studentID string) (*models.VerificationOutcome, models.VerdictMap, error)
	ListByReviewer(ctx context.Context, reviewerID string, limit int) ([]models.VerificationOutcome, error)
}

type decisionNotifier interface {
	NotifyDecision(student *models.Student, outcome *models.VerificationOutcome)
}

// SessionView is the snapshot of a session returned to handlers.
type SessionView struct {
	StudentID         string                      `json:"student_id"`
	State             models.SessionState         `json:"state"`
	CurrentSection    models.Section              `json:"current_section"`
	CompletedSections []models.Section            `json:"completed_sections"`
	Verdicts          models.VerdictMap           `json:"verdicts"`
	Outcome           *models.VerificationOutcome `json:"outcome,omitempty"`
}

// VerificationService drives review sessions over pending profiles and
// persists the resulting decisions. Sessions live in memory; the persisted
// outcome is the durable artifact.
type VerificationService struct {
	students verificationStudentStore
	outcomes outcomeStore
	audit    auditLogger
	notifier decisionNotifier
	cache    cacheInvalidator
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*VerificationSession
}

// NewVerificationService constructs the service.
func NewVerificationService(students verificationStudentStore, outcomes outcomeStore, audit auditLogger, notifier decisionNotifier, cache cacheInvalidator, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		students: students,
		outcomes: outcomes,
		audit:    audit,
		notifier: notifier,
		cache:    cache,
		logger:   logger,
		sessions: make(map[string]*VerificationSession),
	}
}

// OpenSession starts (or resumes) a review session. Profiles that already
// carry a decision open directly in the finalized state for browsing.
func (s *VerificationService) OpenSession(ctx context.Context, studentID string) (*SessionView, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[studentID]; ok {
		return s.view(session), nil
	}

	var session *VerificationSession
	if student.Status == models.StudentStatusPending {
		session = NewVerificationSession(studentID)
	} else {
		outcome, verdicts, err := s.outcomes.FindLatestByStudent(ctx, studentID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load verification outcome")
			}
			// Decided before outcomes were recorded; synthesize from status.
			status := models.VerificationApproved
			if student.Status == models.StudentStatusDeclined {
				status = models.VerificationDeclined
			}
			outcome = &models.VerificationOutcome{StudentID: studentID, Status: status}
			verdicts = models.VerdictMap{}
		}
		session = NewDecidedSession(studentID, outcome, verdicts)
	}
	s.sessions[studentID] = session
	return s.view(session), nil
}

// GetSession returns the current session state.
func (s *VerificationService) GetSession(_ context.Context, studentID string) (*SessionView, error) {
	session, err := s.activeSession(studentID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(session), nil
}

// SetVerdict records one field judgment.
func (s *VerificationService) SetVerdict(_ context.Context, studentID string, section models.Section, field string, correct bool) (*SessionView, error) {
	session, err := s.activeSession(studentID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := session.RecordVerdict(section, field, correct); err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// VerifySection bulk-marks every field of the section correct.
func (s *VerificationService) VerifySection(_ context.Context, studentID string, section models.Section) (*SessionView, error) {
	session, err := s.activeSession(studentID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := session.VerifySection(section); err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// Advance moves forward one section; past the last section the session
// finalizes and the decision is persisted.
func (s *VerificationService) Advance(ctx context.Context, studentID, reviewerID string) (*SessionView, error) {
	session, err := s.activeSession(studentID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := session.Advance(reviewerID); err != nil {
		return nil, err
	}
	if session.State() == models.SessionFinalized {
		if err := s.persistOutcome(ctx, session); err != nil {
			return nil, err
		}
	}
	return s.view(session), nil
}

// Retreat moves back one section without losing recorded verdicts.
func (s *VerificationService) Retreat(_ context.Context, studentID string) (*SessionView, error) {
	session, err := s.activeSession(studentID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := session.Retreat(); err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// Finalize resolves immediately over whatever verdicts exist.
func (s *VerificationService) Finalize(ctx context.Context, studentID, reviewerID string) (*SessionView, error) {
	session, err := s.activeSession(studentID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := session.FinalizeNow(reviewerID); err != nil {
		return nil, err
	}
	if err := s.persistOutcome(ctx, session); err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// ApproveAll marks every field correct and finalizes.
func (s *VerificationService) ApproveAll(ctx context.Context, studentID, reviewerID string) (*SessionView, error) {
	session, err := s.activeSession(studentID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prior := session.Store().Verdicts().Clone()
	for _, section := range models.SectionOrder {
		if err := session.VerifySection(section); err != nil {
			return nil, err
		}
	}
	if _, err := session.FinalizeNow(reviewerID); err != nil {
		return nil, err
	}
	if err := s.persistOutcome(ctx, session); err != nil {
		session.restoreVerdicts(prior)
		return nil, err
	}
	return s.view(session), nil
}

// DeclineAll seeds every field incorrect and finalizes. The supplied reason
// is kept only when the reviewer had judged no fields at all, where the
// blanket decline would otherwise carry no explanation.
func (s *VerificationService) DeclineAll(ctx context.Context, studentID, reviewerID, reason string) (*SessionView, error) {
	session, err := s.activeSession(studentID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.State() == models.SessionFinalized {
		return nil, appErrors.ErrSessionFinalized
	}
	hadVerdicts := session.Store().HasAnyVerdict()
	prior := session.Store().Verdicts().Clone()
	session.Store().SetAllIncorrect()
	outcome, err := session.FinalizeNow(reviewerID)
	if err != nil {
		return nil, err
	}
	if !hadVerdicts {
		outcome.Reason = reason
	}
	if err := s.persistOutcome(ctx, session); err != nil {
		session.restoreVerdicts(prior)
		return nil, err
	}
	return s.view(session), nil
}

// Outcome returns the persisted decision for a student.
func (s *VerificationService) Outcome(ctx context.Context, studentID string) (*models.VerificationOutcome, error) {
	outcome, _, err := s.outcomes.FindLatestByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no verification outcome recorded")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load verification outcome")
	}
	return outcome, nil
}

// ReviewerHistory lists the decisions a reviewer has made, most recent first.
func (s *VerificationService) ReviewerHistory(ctx context.Context, reviewerID string, limit int) ([]models.VerificationOutcome, error) {
	history, err := s.outcomes.ListByReviewer(ctx, reviewerID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviewer history")
	}
	return history, nil
}

func (s *VerificationService) activeSession(studentID string) (*VerificationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[studentID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no open verification session for this student")
	}
	return session, nil
}

// persistOutcome writes the finalized decision. When the store or the status
// update fails, the session is reopened so the reviewer can retry; nothing is
// stranded in the finalized state without a persisted outcome.
func (s *VerificationService) persistOutcome(ctx context.Context, session *VerificationSession) error {
	outcome := session.Outcome()
	if err := s.outcomes.SaveOutcome(ctx, outcome, session.Store().Verdicts()); err != nil {
		session.reopen()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save verification outcome")
	}

	status := models.StudentStatusApproved
	if outcome.Status == models.VerificationDeclined {
		status = models.StudentStatusDeclined
	}
	if err := s.students.UpdateStatus(ctx, session.StudentID(), status); err != nil {
		session.reopen()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student status")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, completionCacheKey(session.StudentID())); err != nil {
			s.logger.Warn("failed to invalidate completion cache", zap.String("student_id", session.StudentID()), zap.Error(err))
		}
	}
	if s.audit != nil {
		entry := &models.AuditLog{
			UserID:     outcome.ReviewedBy,
			Action:     models.AuditActionProfileFinalized,
			EntityType: "student",
			EntityID:   session.StudentID(),
			Detail:     string(outcome.Status),
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to write audit log", zap.String("student_id", session.StudentID()), zap.Error(err))
		}
	}
	if s.notifier != nil {
		if student, err := s.students.FindByID(ctx, session.StudentID()); err == nil {
			s.notifier.NotifyDecision(student, outcome)
		} else {
			s.logger.Warn("skipping decision notification", zap.String("student_id", session.StudentID()), zap.Error(err))
		}
	}

	delete(s.sessions, session.StudentID())
	return nil
}

func (s *VerificationService) view(session *VerificationSession) *SessionView {
	return &SessionView{
		StudentID:         session.StudentID(),
		State:             session.State(),
		CurrentSection:    session.CurrentSection(),
		CompletedSections: session.Gate().CompletedSections(),
		Verdicts:          session.Store().Verdicts(),
		Outcome:           session.Outcome(),
	}
}
