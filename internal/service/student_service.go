package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuslink/sar-portal-api/internal/models"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	ExistsByEnrollment(ctx context.Context, enrollment string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// profileEssentials is the subset of the profile that must be present before
// a submission is accepted for review.
type profileEssentials struct {
	FirstName        string `validate:"required"`
	LastName         string `validate:"required"`
	Email            string `validate:"required,email"`
	EnrollmentNumber string `validate:"required"`
	Course           string `validate:"required"`
	Branch           string `validate:"required"`
	CurrentSemester  int    `validate:"required,min=1,max=8"`
}

// StudentService handles profile submission and staff edits. Review status
// transitions happen only through the verification workflow, never here.
type StudentService struct {
	repo      studentRepository
	audit     auditLogger
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, audit auditLogger, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns one profile.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetByUser returns the profile owned by a portal user.
func (s *StudentService) GetByUser(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no profile for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Submit registers a new profile in the pending state.
func (s *StudentService) Submit(ctx context.Context, student *models.Student, actorID string) (*models.Student, error) {
	if err := s.validateEssentials(student); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByEnrollment(ctx, student.EnrollmentNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, fmt.Sprintf("enrollment number %s already registered", student.EnrollmentNumber))
	}
	student.Status = models.StudentStatusPending
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.afterWrite(ctx, actorID, models.AuditActionStudentCreate, student)
	return student, nil
}

// Update overwrites a profile with a staff edit. The review status carried by
// the stored row is preserved.
func (s *StudentService) Update(ctx context.Context, student *models.Student, actorID string) (*models.Student, error) {
	if err := s.validateEssentials(student); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByEnrollment(ctx, student.EnrollmentNumber, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, fmt.Sprintf("enrollment number %s already registered", student.EnrollmentNumber))
	}
	student.Status = existing.Status
	student.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.afterWrite(ctx, actorID, models.AuditActionStudentUpdate, student)
	return student, nil
}

// Delete removes a profile and everything hanging off it via cascades.
func (s *StudentService) Delete(ctx context.Context, id string, actorID string) error {
	student, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.afterWrite(ctx, actorID, models.AuditActionStudentDelete, student)
	return nil
}

func (s *StudentService) validateEssentials(student *models.Student) error {
	essentials := profileEssentials{
		FirstName:        student.FirstName,
		LastName:         student.LastName,
		Email:            student.Email,
		EnrollmentNumber: student.EnrollmentNumber,
		Course:           student.Course,
		Branch:           student.Branch,
		CurrentSemester:  student.CurrentSemester,
	}
	if err := s.validator.Struct(essentials); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	return nil
}

func (s *StudentService) afterWrite(ctx context.Context, actorID string, action models.AuditAction, student *models.Student) {
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, completionCacheKey(student.ID)); err != nil {
			s.logger.Warn("failed to invalidate completion cache", zap.String("student_id", student.ID), zap.Error(err))
		}
	}
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     actorID,
		Action:     action,
		EntityType: "student",
		EntityID:   student.ID,
		Detail:     student.EnrollmentNumber,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("student_id", student.ID), zap.Error(err))
	}
}
