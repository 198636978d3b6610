package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/campuslink/sar-portal-api/internal/models"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
)

// markTolerance is the allowed drift between internal+external and the stored
// total for one mark group.
const markTolerance = 0.01

const (
	minSemester = 1
	maxSemester = 8
)

type recordStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.AcademicRecord, error)
	FindByID(ctx context.Context, id string) (*models.AcademicRecord, error)
	ExistsBySemester(ctx context.Context, studentID string, semester int, excludeID string) (bool, error)
	Create(ctx context.Context, record *models.AcademicRecord) error
	Update(ctx context.Context, record *models.AcademicRecord) error
	Delete(ctx context.Context, id string) error
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RecordService validates and persists semester records. All writes go
// through Validate; nothing is persisted when validation fails.
type RecordService struct {
	repo   recordStore
	audit  auditLogger
	cache  cacheInvalidator
	logger *zap.Logger
}

// NewRecordService constructs the service.
func NewRecordService(repo recordStore, audit auditLogger, cache cacheInvalidator, logger *zap.Logger) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{repo: repo, audit: audit, cache: cache, logger: logger}
}

// Validate checks the record-level ranges and every subject row. It returns a
// single validation error carrying all per-field failures.
func (s *RecordService) Validate(record *models.AcademicRecord) error {
	var failures []appErrors.ValidationFailure

	if record.Semester < minSemester || record.Semester > maxSemester {
		failures = append(failures, appErrors.ValidationFailure{
			Field:  "semester",
			Reason: fmt.Sprintf("must be between %d and %d", minSemester, maxSemester),
		})
	}
	if record.AcademicYear == "" {
		failures = append(failures, appErrors.ValidationFailure{Field: "academic_year", Reason: "is required"})
	}
	if record.SGPA < 0 || record.SGPA > 10 {
		failures = append(failures, appErrors.ValidationFailure{Field: "sgpa", Reason: "must be between 0 and 10"})
	}
	if record.CGPA < 0 || record.CGPA > 10 {
		failures = append(failures, appErrors.ValidationFailure{Field: "cgpa", Reason: "must be between 0 and 10"})
	}
	if record.AttendancePercentage < 0 || record.AttendancePercentage > 100 {
		failures = append(failures, appErrors.ValidationFailure{Field: "attendance_percentage", Reason: "must be between 0 and 100"})
	}
	if record.TotalCredits < 0 {
		failures = append(failures, appErrors.ValidationFailure{Field: "total_credits", Reason: "must not be negative"})
	}
	if record.EarnedCredits < 0 {
		failures = append(failures, appErrors.ValidationFailure{Field: "earned_credits", Reason: "must not be negative"})
	}
	if record.BacklogCount < 0 {
		failures = append(failures, appErrors.ValidationFailure{Field: "backlog_count", Reason: "must not be negative"})
	}
	if !models.ValidSemesterResult(record.SemesterResult) {
		failures = append(failures, appErrors.ValidationFailure{
			Field:  "semester_result",
			Reason: "must be one of ongoing, pass, fail, detained",
		})
	}

	for i := range record.Subjects {
		failures = append(failures, s.subjectFailures(i, &record.Subjects[i])...)
	}

	if len(failures) > 0 {
		return appErrors.ValidationErrors(failures)
	}
	return nil
}

// ValidateSubject checks a single subject row in isolation.
func (s *RecordService) ValidateSubject(subject *models.Subject) error {
	if failures := s.subjectFailures(0, subject); len(failures) > 0 {
		return appErrors.ValidationErrors(failures)
	}
	return nil
}

func (s *RecordService) subjectFailures(index int, subject *models.Subject) []appErrors.ValidationFailure {
	prefix := fmt.Sprintf("subjects[%d]", index)
	var failures []appErrors.ValidationFailure

	if subject.Code == "" {
		failures = append(failures, appErrors.ValidationFailure{Field: prefix + ".code", Reason: "is required"})
	}
	if subject.Name == "" {
		failures = append(failures, appErrors.ValidationFailure{Field: prefix + ".name", Reason: "is required"})
	}
	if subject.Credits < 0 {
		failures = append(failures, appErrors.ValidationFailure{Field: prefix + ".credits", Reason: "must not be negative"})
	}
	// An empty type means "not entered"; anything else must be a known category.
	if subject.Type != "" && !models.ValidSubjectType(subject.Type) {
		failures = append(failures, appErrors.ValidationFailure{
			Field:  prefix + ".subject_type",
			Reason: "must be one of theory, practical, theory_practical, elective, audit",
		})
	}

	failures = append(failures, markGroupFailures(prefix, models.MarkGroupTheory,
		subject.InternalTheory, subject.ExternalTheory, subject.TotalTheory)...)
	failures = append(failures, markGroupFailures(prefix, models.MarkGroupPractical,
		subject.InternalPractical, subject.ExternalPractical, subject.TotalPractical)...)
	return failures
}

func markGroupFailures(prefix string, group models.MarkGroup, internal, external, total *float64) []appErrors.ValidationFailure {
	var failures []appErrors.ValidationFailure
	marks := []struct {
		name string
		mark *float64
	}{
		{"internal", internal},
		{"external", external},
		{"total", total},
	}
	for _, m := range marks {
		if m.mark != nil && *m.mark < 0 {
			failures = append(failures, appErrors.ValidationFailure{
				Field:  fmt.Sprintf("%s.%s_%s", prefix, m.name, group),
				Reason: "must not be negative",
			})
		}
	}
	// The consistency rule only fires once a total is entered; missing
	// component marks count as zero.
	if total != nil {
		sum := markOrZero(internal) + markOrZero(external)
		if math.Abs(sum-*total) > markTolerance {
			failures = append(failures, appErrors.ValidationFailure{
				Field:  fmt.Sprintf("%s.total_%s", prefix, group),
				Reason: fmt.Sprintf("internal + external = %.2f does not match total %.2f", sum, *total),
			})
		}
	}
	return failures
}

func markOrZero(mark *float64) float64 {
	if mark == nil {
		return 0
	}
	return *mark
}

// RecomputeTotals overwrites every subject's group totals with
// internal + external, treating missing marks as zero. Groups with no marks
// at all are left untouched. Running it twice changes nothing.
func (s *RecordService) RecomputeTotals(record *models.AcademicRecord) {
	for i := range record.Subjects {
		subject := &record.Subjects[i]
		if subject.InternalTheory != nil || subject.ExternalTheory != nil || subject.TotalTheory != nil {
			total := markOrZero(subject.InternalTheory) + markOrZero(subject.ExternalTheory)
			subject.TotalTheory = &total
		}
		if subject.InternalPractical != nil || subject.ExternalPractical != nil || subject.TotalPractical != nil {
			total := markOrZero(subject.InternalPractical) + markOrZero(subject.ExternalPractical)
			subject.TotalPractical = &total
		}
	}
}

// ListByStudent returns a student's records ordered by semester.
func (s *RecordService) ListByStudent(ctx context.Context, studentID string) ([]models.AcademicRecord, error) {
	records, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic records")
	}
	return records, nil
}

// Get returns one record by ID.
func (s *RecordService) Get(ctx context.Context, id string) (*models.AcademicRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic record")
	}
	return record, nil
}

// Create validates and persists a new semester record. Group totals are
// recomputed from the submitted marks before anything else, so a stale or
// missing total never reaches the database. A second record for the same
// (student, semester) pair is rejected with a conflict, not a generic
// failure.
func (s *RecordService) Create(ctx context.Context, record *models.AcademicRecord, actorID string) (*models.AcademicRecord, error) {
	s.RecomputeTotals(record)
	if err := s.Validate(record); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsBySemester(ctx, record.StudentID, record.Semester, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check semester uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateSemester, fmt.Sprintf("semester %d already has a record", record.Semester))
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic record")
	}
	s.afterWrite(ctx, actorID, models.AuditActionRecordCreate, record)
	return record, nil
}

// Update validates and overwrites an existing record. Group totals are
// recomputed before validation, same as Create. The duplicate-semester check
// excludes the record being edited so saving in place never conflicts with
// itself.
func (s *RecordService) Update(ctx context.Context, record *models.AcademicRecord, actorID string) (*models.AcademicRecord, error) {
	s.RecomputeTotals(record)
	if err := s.Validate(record); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsBySemester(ctx, record.StudentID, record.Semester, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check semester uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateSemester, fmt.Sprintf("semester %d already has a record", record.Semester))
	}
	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update academic record")
	}
	s.afterWrite(ctx, actorID, models.AuditActionRecordUpdate, record)
	return record, nil
}

// Recompute reloads the record, overwrites the group totals and saves the
// result.
func (s *RecordService) Recompute(ctx context.Context, id string, actorID string) (*models.AcademicRecord, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.RecomputeTotals(record)
	return s.Update(ctx, record, actorID)
}

// Delete removes a record.
func (s *RecordService) Delete(ctx context.Context, id string, actorID string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "academic record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete academic record")
	}
	s.afterWrite(ctx, actorID, models.AuditActionRecordDelete, record)
	return nil
}

func (s *RecordService) afterWrite(ctx context.Context, actorID string, action models.AuditAction, record *models.AcademicRecord) {
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, completionCacheKey(record.StudentID)); err != nil {
			s.logger.Warn("failed to invalidate completion cache", zap.String("student_id", record.StudentID), zap.Error(err))
		}
	}
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     actorID,
		Action:     action,
		EntityType: "academic_record",
		EntityID:   record.ID,
		Detail:     fmt.Sprintf("semester %d", record.Semester),
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("record_id", record.ID), zap.Error(err))
	}
}
