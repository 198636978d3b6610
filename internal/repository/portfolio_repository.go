package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuslink/sar-portal-api/internal/models"
)

// PortfolioRepository persists internships and achievements.
type PortfolioRepository struct {
	db *sqlx.DB
}

// NewPortfolioRepository constructs a PortfolioRepository.
func NewPortfolioRepository(db *sqlx.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

const internshipSelectList = `id, student_id, company, position, start_date, end_date, description,
       skills, technologies, team_members, certificate_url, created_at, updated_at`

// ListInternships returns a student's internships, most recent first.
func (r *PortfolioRepository) ListInternships(ctx context.Context, studentID string) ([]models.Internship, error) {
	query := fmt.Sprintf("SELECT %s FROM internships WHERE student_id = $1 ORDER BY start_date DESC", internshipSelectList)
	var internships []models.Internship
	if err := r.db.SelectContext(ctx, &internships, query, studentID); err != nil {
		return nil, fmt.Errorf("list internships: %w", err)
	}
	return internships, nil
}

// FindInternship fetches one internship by ID.
func (r *PortfolioRepository) FindInternship(ctx context.Context, id string) (*models.Internship, error) {
	query := fmt.Sprintf("SELECT %s FROM internships WHERE id = $1 LIMIT 1", internshipSelectList)
	var internship models.Internship
	if err := r.db.GetContext(ctx, &internship, query, id); err != nil {
		return nil, err
	}
	return &internship, nil
}

// CreateInternship inserts a new internship row.
func (r *PortfolioRepository) CreateInternship(ctx context.Context, internship *models.Internship) error {
	if internship.ID == "" {
		internship.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if internship.CreatedAt.IsZero() {
		internship.CreatedAt = now
	}
	internship.UpdatedAt = now
	const query = `INSERT INTO internships
	(id, student_id, company, position, start_date, end_date, description, skills, technologies, team_members, certificate_url, created_at, updated_at)
	VALUES (:id, :student_id, :company, :position, :start_date, :end_date, :description, :skills, :technologies, :team_members, :certificate_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, internship); err != nil {
		return fmt.Errorf("create internship: %w", err)
	}
	return nil
}

// UpdateInternship overwrites mutable internship columns.
func (r *PortfolioRepository) UpdateInternship(ctx context.Context, internship *models.Internship) error {
	internship.UpdatedAt = time.Now().UTC()
	const query = `UPDATE internships SET company = :company, position = :position, start_date = :start_date,
	end_date = :end_date, description = :description, skills = :skills, technologies = :technologies,
	team_members = :team_members, certificate_url = :certificate_url, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, internship)
	if err != nil {
		return fmt.Errorf("update internship: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check internship update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteInternship removes an internship row.
func (r *PortfolioRepository) DeleteInternship(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM internships WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete internship: %w", err)
	}
	return nil
}

// CountInternships returns how many internships a student has recorded.
func (r *PortfolioRepository) CountInternships(ctx context.Context, studentID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM internships WHERE student_id = $1`, studentID); err != nil {
		return 0, fmt.Errorf("count internships: %w", err)
	}
	return count, nil
}

const achievementSelectList = `id, student_id, title, organization, date, category, description,
       tags, media_links, created_at, updated_at`

// ListAchievements returns a student's achievements, most recent first.
func (r *PortfolioRepository) ListAchievements(ctx context.Context, studentID string) ([]models.Achievement, error) {
	query := fmt.Sprintf("SELECT %s FROM achievements WHERE student_id = $1 ORDER BY date DESC", achievementSelectList)
	var achievements []models.Achievement
	if err := r.db.SelectContext(ctx, &achievements, query, studentID); err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return achievements, nil
}

// FindAchievement fetches one achievement by ID.
func (r *PortfolioRepository) FindAchievement(ctx context.Context, id string) (*models.Achievement, error) {
	query := fmt.Sprintf("SELECT %s FROM achievements WHERE id = $1 LIMIT 1", achievementSelectList)
	var achievement models.Achievement
	if err := r.db.GetContext(ctx, &achievement, query, id); err != nil {
		return nil, err
	}
	return &achievement, nil
}

// CreateAchievement inserts a new achievement row.
func (r *PortfolioRepository) CreateAchievement(ctx context.Context, achievement *models.Achievement) error {
	if achievement.ID == "" {
		achievement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if achievement.CreatedAt.IsZero() {
		achievement.CreatedAt = now
	}
	achievement.UpdatedAt = now
	const query = `INSERT INTO achievements
	(id, student_id, title, organization, date, category, description, tags, media_links, created_at, updated_at)
	VALUES (:id, :student_id, :title, :organization, :date, :category, :description, :tags, :media_links, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, achievement); err != nil {
		return fmt.Errorf("create achievement: %w", err)
	}
	return nil
}

// UpdateAchievement overwrites mutable achievement columns.
func (r *PortfolioRepository) UpdateAchievement(ctx context.Context, achievement *models.Achievement) error {
	achievement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE achievements SET title = :title, organization = :organization, date = :date,
	category = :category, description = :description, tags = :tags, media_links = :media_links,
	updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, achievement)
	if err != nil {
		return fmt.Errorf("update achievement: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check achievement update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteAchievement removes an achievement row.
func (r *PortfolioRepository) DeleteAchievement(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM achievements WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete achievement: %w", err)
	}
	return nil
}

// CountAchievements returns how many achievements a student has recorded.
func (r *PortfolioRepository) CountAchievements(ctx context.Context, studentID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM achievements WHERE student_id = $1`, studentID); err != nil {
		return 0, fmt.Errorf("count achievements: %w", err)
	}
	return count, nil
}
