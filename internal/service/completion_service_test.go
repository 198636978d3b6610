package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/sar-portal-api/internal/models"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
)

func TestComputeCompletionScenarioNewProfile(t *testing.T) {
	// Second-semester student with only enrollment and alternate email
	// filled in: 2 of 8 expected slots.
	score := ComputeCompletion(CompletionInput{
		CurrentSemester:   2,
		HasEnrollment:     true,
		HasAlternateEmail: true,
	})
	assert.Equal(t, 8, score.Total)
	assert.Equal(t, 2, score.Filled)
	assert.Equal(t, 25, score.Score)
}

func TestComputeCompletionFullProfileCapsAtHundred(t *testing.T) {
	score := ComputeCompletion(CompletionInput{
		CurrentSemester:   4,
		HasEnrollment:     true,
		HasAlternateEmail: true,
		RecordCount:       8,
		InternshipCount:   3,
		AchievementCount:  5,
	})
	assert.Equal(t, 100, score.Score)
}

func TestComputeCompletionBounds(t *testing.T) {
	for semester := 1; semester <= 8; semester++ {
		for records := 0; records <= 10; records++ {
			score := ComputeCompletion(CompletionInput{CurrentSemester: semester, RecordCount: records})
			assert.GreaterOrEqual(t, score.Score, 0)
			assert.LessOrEqual(t, score.Score, 100)
		}
	}
}

func TestComputeCompletionMonotonicInFilledSlots(t *testing.T) {
	base := CompletionInput{CurrentSemester: 4, HasEnrollment: true, RecordCount: 1}
	baseline := ComputeCompletion(base).Score

	withEmail := base
	withEmail.HasAlternateEmail = true
	assert.GreaterOrEqual(t, ComputeCompletion(withEmail).Score, baseline)

	withRecord := base
	withRecord.RecordCount++
	assert.GreaterOrEqual(t, ComputeCompletion(withRecord).Score, baseline)

	withInternship := base
	withInternship.InternshipCount = 1
	assert.GreaterOrEqual(t, ComputeCompletion(withInternship).Score, baseline)

	withAchievement := base
	withAchievement.AchievementCount = 1
	assert.GreaterOrEqual(t, ComputeCompletion(withAchievement).Score, baseline)
}

type stubCompletionStudents struct {
	student *models.Student
}

func (s *stubCompletionStudents) FindByID(context.Context, string) (*models.Student, error) {
	return s.student, nil
}

type stubCompletionRecords struct{ count int }

func (s *stubCompletionRecords) CountByStudent(context.Context, string) (int, error) {
	return s.count, nil
}

type stubCompletionPortfolio struct{ internships, achievements int }

func (s *stubCompletionPortfolio) CountInternships(context.Context, string) (int, error) {
	return s.internships, nil
}

func (s *stubCompletionPortfolio) CountAchievements(context.Context, string) (int, error) {
	return s.achievements, nil
}

type stubCompletionCache struct {
	values map[string][]byte
	hits   int
	sets   int
}

func (c *stubCompletionCache) Get(_ context.Context, key string, dest interface{}) error {
	if _, ok := c.values[key]; !ok {
		return appErrors.ErrCacheMiss
	}
	c.hits++
	*(dest.(*CompletionScore)) = CompletionScore{Score: 42, Filled: 3, Total: 8}
	return nil
}

func (c *stubCompletionCache) Set(_ context.Context, key string, _ interface{}, _ time.Duration) error {
	if c.values == nil {
		c.values = map[string][]byte{}
	}
	c.values[key] = []byte("cached")
	c.sets++
	return nil
}

func TestCompletionServiceScoresAndCaches(t *testing.T) {
	students := &stubCompletionStudents{student: &models.Student{
		ID:               "s-1",
		CurrentSemester:  2,
		EnrollmentNumber: "EN-001",
		AlternateEmail:   "alt@example.com",
	}}
	cache := &stubCompletionCache{}
	svc := NewCompletionService(students, &stubCompletionRecords{}, &stubCompletionPortfolio{}, cache, true, time.Minute, nil)

	score, err := svc.Score(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, 25, score.Score)
	assert.False(t, score.Cached)
	assert.Equal(t, 1, cache.sets)

	// Second call is served from cache.
	cached, err := svc.Score(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, 1, cache.sets)
}

func TestCompletionServiceSkipsCacheWhenDisabled(t *testing.T) {
	students := &stubCompletionStudents{student: &models.Student{ID: "s-1", CurrentSemester: 1}}
	cache := &stubCompletionCache{}
	svc := NewCompletionService(students, &stubCompletionRecords{count: 1}, &stubCompletionPortfolio{internships: 1}, cache, false, time.Minute, nil)

	score, err := svc.Score(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, 0, cache.sets)
	assert.Equal(t, 3, score.Filled)
	assert.Equal(t, 7, score.Total)
}
