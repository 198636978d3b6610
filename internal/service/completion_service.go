package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/campuslink/sar-portal-api/internal/models"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
)

// completionCacheKey is the redis key for one student's cached score. Every
// write to profile, records or portfolio data invalidates it.
func completionCacheKey(studentID string) string {
	return fmt.Sprintf("completion:student:%s", studentID)
}

// CompletionInput carries everything the scorer looks at.
type CompletionInput struct {
	CurrentSemester   int
	HasEnrollment     bool
	HasAlternateEmail bool
	RecordCount       int
	InternshipCount   int
	AchievementCount  int
}

// CompletionScore is the scored result returned to clients.
type CompletionScore struct {
	StudentID string    `json:"student_id"`
	Score     int       `json:"score"`
	Filled    int       `json:"filled"`
	Total     int       `json:"total"`
	Cached    bool      `json:"cached"`
	ScoredAt  time.Time `json:"scored_at"`
}

// ComputeCompletion scores how much of the SAR booklet a student has filled
// in. The denominator grows with the current semester since each semester is
// expected to contribute a record; internships and achievements each weigh
// two slots, base profile expectations weigh the rest.
func ComputeCompletion(input CompletionInput) CompletionScore {
	total := 2 + input.CurrentSemester + 4

	filled := input.RecordCount
	if input.HasEnrollment {
		filled++
	}
	if input.HasAlternateEmail {
		filled++
	}
	if input.InternshipCount > 0 {
		filled += 2
	}
	if input.AchievementCount > 0 {
		filled += 2
	}

	score := int(math.Round(100 * float64(filled) / float64(total)))
	if score > 100 {
		score = 100
	}
	return CompletionScore{Score: score, Filled: filled, Total: total}
}

type completionStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type completionRecordStore interface {
	CountByStudent(ctx context.Context, studentID string) (int, error)
}

type completionPortfolioStore interface {
	CountInternships(ctx context.Context, studentID string) (int, error)
	CountAchievements(ctx context.Context, studentID string) (int, error)
}

type completionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CompletionService scores booklet completion with a redis cache in front.
type CompletionService struct {
	students     completionStudentStore
	records      completionRecordStore
	portfolio    completionPortfolioStore
	cache        completionCache
	cacheEnabled bool
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewCompletionService constructs the service.
func NewCompletionService(students completionStudentStore, records completionRecordStore, portfolio completionPortfolioStore, cache completionCache, cacheEnabled bool, cacheTTL time.Duration, logger *zap.Logger) *CompletionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CompletionService{
		students:     students,
		records:      records,
		portfolio:    portfolio,
		cache:        cache,
		cacheEnabled: cacheEnabled,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// Score returns the completion score for a student, serving from cache when
// possible.
func (s *CompletionService) Score(ctx context.Context, studentID string) (*CompletionScore, error) {
	key := completionCacheKey(studentID)
	if s.cacheEnabled && s.cache != nil {
		var cached CompletionScore
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			cached.Cached = true
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("completion cache read failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	recordCount, err := s.records.CountByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count academic records")
	}
	internships, err := s.portfolio.CountInternships(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count internships")
	}
	achievements, err := s.portfolio.CountAchievements(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count achievements")
	}

	score := ComputeCompletion(CompletionInput{
		CurrentSemester:   student.CurrentSemester,
		HasEnrollment:     student.EnrollmentNumber != "",
		HasAlternateEmail: student.AlternateEmail != "",
		RecordCount:       recordCount,
		InternshipCount:   internships,
		AchievementCount:  achievements,
	})
	score.StudentID = studentID
	score.ScoredAt = time.Now().UTC()

	if s.cacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, key, score, s.cacheTTL); err != nil {
			s.logger.Warn("completion cache write failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return &score, nil
}
