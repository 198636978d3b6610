package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuslink/sar-portal-api/internal/models"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
)

type portfolioRepository interface {
	ListInternships(ctx context.Context, studentID string) ([]models.Internship, error)
	FindInternship(ctx context.Context, id string) (*models.Internship, error)
	CreateInternship(ctx context.Context, internship *models.Internship) error
	UpdateInternship(ctx context.Context, internship *models.Internship) error
	DeleteInternship(ctx context.Context, id string) error
	ListAchievements(ctx context.Context, studentID string) ([]models.Achievement, error)
	FindAchievement(ctx context.Context, id string) (*models.Achievement, error)
	CreateAchievement(ctx context.Context, achievement *models.Achievement) error
	UpdateAchievement(ctx context.Context, achievement *models.Achievement) error
	DeleteAchievement(ctx context.Context, id string) error
}

type internshipEssentials struct {
	StudentID string `validate:"required"`
	Company   string `validate:"required"`
	Position  string `validate:"required"`
	StartDate string `validate:"required"`
}

type achievementEssentials struct {
	StudentID    string `validate:"required"`
	Title        string `validate:"required"`
	Organization string `validate:"required"`
	Date         string `validate:"required"`
}

// PortfolioService manages the internship and achievement entries of a SAR
// booklet.
type PortfolioService struct {
	repo      portfolioRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPortfolioService constructs the service.
func NewPortfolioService(repo portfolioRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *PortfolioService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortfolioService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// ListInternships returns all internships for a student.
func (s *PortfolioService) ListInternships(ctx context.Context, studentID string) ([]models.Internship, error) {
	internships, err := s.repo.ListInternships(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list internships")
	}
	return internships, nil
}

// CreateInternship validates and stores a new internship.
func (s *PortfolioService) CreateInternship(ctx context.Context, internship *models.Internship) (*models.Internship, error) {
	essentials := internshipEssentials{
		StudentID: internship.StudentID,
		Company:   internship.Company,
		Position:  internship.Position,
		StartDate: internship.StartDate,
	}
	if err := s.validator.Struct(essentials); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid internship payload")
	}
	if err := s.repo.CreateInternship(ctx, internship); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create internship")
	}
	s.invalidate(ctx, internship.StudentID)
	return internship, nil
}

// UpdateInternship overwrites an internship owned by the given student.
func (s *PortfolioService) UpdateInternship(ctx context.Context, internship *models.Internship) (*models.Internship, error) {
	existing, err := s.repo.FindInternship(ctx, internship.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "internship not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load internship")
	}
	if existing.StudentID != internship.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "internship belongs to another student")
	}
	essentials := internshipEssentials{
		StudentID: internship.StudentID,
		Company:   internship.Company,
		Position:  internship.Position,
		StartDate: internship.StartDate,
	}
	if err := s.validator.Struct(essentials); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid internship payload")
	}
	if err := s.repo.UpdateInternship(ctx, internship); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update internship")
	}
	s.invalidate(ctx, internship.StudentID)
	return internship, nil
}

// DeleteInternship removes an internship after an ownership check.
func (s *PortfolioService) DeleteInternship(ctx context.Context, id, studentID string) error {
	existing, err := s.repo.FindInternship(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "internship not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load internship")
	}
	if studentID != "" && existing.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "internship belongs to another student")
	}
	if err := s.repo.DeleteInternship(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete internship")
	}
	s.invalidate(ctx, existing.StudentID)
	return nil
}

// ListAchievements returns all achievements for a student.
func (s *PortfolioService) ListAchievements(ctx context.Context, studentID string) ([]models.Achievement, error) {
	achievements, err := s.repo.ListAchievements(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list achievements")
	}
	return achievements, nil
}

// CreateAchievement validates and stores a new achievement.
func (s *PortfolioService) CreateAchievement(ctx context.Context, achievement *models.Achievement) (*models.Achievement, error) {
	essentials := achievementEssentials{
		StudentID:    achievement.StudentID,
		Title:        achievement.Title,
		Organization: achievement.Organization,
		Date:         achievement.Date,
	}
	if err := s.validator.Struct(essentials); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid achievement payload")
	}
	if err := s.repo.CreateAchievement(ctx, achievement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create achievement")
	}
	s.invalidate(ctx, achievement.StudentID)
	return achievement, nil
}

// UpdateAchievement overwrites an achievement owned by the given student.
func (s *PortfolioService) UpdateAchievement(ctx context.Context, achievement *models.Achievement) (*models.Achievement, error) {
	existing, err := s.repo.FindAchievement(ctx, achievement.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "achievement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load achievement")
	}
	if existing.StudentID != achievement.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "achievement belongs to another student")
	}
	essentials := achievementEssentials{
		StudentID:    achievement.StudentID,
		Title:        achievement.Title,
		Organization: achievement.Organization,
		Date:         achievement.Date,
	}
	if err := s.validator.Struct(essentials); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid achievement payload")
	}
	if err := s.repo.UpdateAchievement(ctx, achievement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update achievement")
	}
	s.invalidate(ctx, achievement.StudentID)
	return achievement, nil
}

// DeleteAchievement removes an achievement after an ownership check.
func (s *PortfolioService) DeleteAchievement(ctx context.Context, id, studentID string) error {
	existing, err := s.repo.FindAchievement(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "achievement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load achievement")
	}
	if studentID != "" && existing.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "achievement belongs to another student")
	}
	if err := s.repo.DeleteAchievement(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete achievement")
	}
	s.invalidate(ctx, existing.StudentID)
	return nil
}

func (s *PortfolioService) invalidate(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, completionCacheKey(studentID)); err != nil {
		s.logger.Warn("failed to invalidate completion cache", zap.String("student_id", studentID), zap.Error(err))
	}
}
