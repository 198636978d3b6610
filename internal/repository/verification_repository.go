package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuslink/sar-portal-api/internal/models"
)

// VerificationRepository persists review outcomes. The per-field verdict map
// and the declined-field list are stored as JSONB columns since they are only
// ever read back whole.
type VerificationRepository struct {
	db *sqlx.DB
}

// NewVerificationRepository constructs a VerificationRepository.
func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

type outcomeRow struct {
	ID             string    `db:"id"`
	StudentID      string    `db:"student_id"`
	Status         string    `db:"status"`
	DeclinedFields []byte    `db:"declined_fields"`
	Verdicts       []byte    `db:"verdicts"`
	Reason         string    `db:"reason"`
	ReviewedBy     string    `db:"reviewed_by"`
	ReviewedAt     time.Time `db:"reviewed_at"`
}

const outcomeSelectList = `id, student_id, status, declined_fields, verdicts, reason, reviewed_by, reviewed_at`

// SaveOutcome inserts the decision for one reviewed profile along with the
// full verdict map it was derived from.
func (r *VerificationRepository) SaveOutcome(ctx context.Context, outcome *models.VerificationOutcome, verdicts models.VerdictMap) error {
	if outcome.ID == "" {
		outcome.ID = uuid.NewString()
	}
	if outcome.ReviewedAt.IsZero() {
		outcome.ReviewedAt = time.Now().UTC()
	}

	declined, err := json.Marshal(outcome.DeclinedFields)
	if err != nil {
		return fmt.Errorf("marshal declined fields: %w", err)
	}
	verdictPayload, err := json.Marshal(verdicts)
	if err != nil {
		return fmt.Errorf("marshal verdicts: %w", err)
	}

	row := outcomeRow{
		ID:             outcome.ID,
		StudentID:      outcome.StudentID,
		Status:         string(outcome.Status),
		DeclinedFields: declined,
		Verdicts:       verdictPayload,
		Reason:         outcome.Reason,
		ReviewedBy:     outcome.ReviewedBy,
		ReviewedAt:     outcome.ReviewedAt,
	}
	const query = `INSERT INTO verification_outcomes
	(id, student_id, status, declined_fields, verdicts, reason, reviewed_by, reviewed_at)
	VALUES (:id, :student_id, :status, :declined_fields, :verdicts, :reason, :reviewed_by, :reviewed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("save verification outcome: %w", err)
	}
	return nil
}

// FindLatestByStudent returns the most recent outcome for a student.
func (r *VerificationRepository) FindLatestByStudent(ctx context.Context, studentID string) (*models.VerificationOutcome, models.VerdictMap, error) {
	query := fmt.Sprintf("SELECT %s FROM verification_outcomes WHERE student_id = $1 ORDER BY reviewed_at DESC LIMIT 1", outcomeSelectList)
	var row outcomeRow
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		return nil, nil, err
	}
	return row.toModel()
}

// ListByReviewer returns outcomes recorded by a reviewer, latest first.
func (r *VerificationRepository) ListByReviewer(ctx context.Context, reviewerID string, limit int) ([]models.VerificationOutcome, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM verification_outcomes WHERE reviewed_by = $1 ORDER BY reviewed_at DESC LIMIT %d", outcomeSelectList, limit)
	var rows []outcomeRow
	if err := r.db.SelectContext(ctx, &rows, query, reviewerID); err != nil {
		return nil, fmt.Errorf("list outcomes by reviewer: %w", err)
	}
	outcomes := make([]models.VerificationOutcome, 0, len(rows))
	for _, row := range rows {
		outcome, _, err := row.toModel()
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, nil
}

func (row outcomeRow) toModel() (*models.VerificationOutcome, models.VerdictMap, error) {
	outcome := models.VerificationOutcome{
		ID:         row.ID,
		StudentID:  row.StudentID,
		Status:     models.VerificationStatus(row.Status),
		Reason:     row.Reason,
		ReviewedBy: row.ReviewedBy,
		ReviewedAt: row.ReviewedAt,
	}
	if len(row.DeclinedFields) > 0 {
		if err := json.Unmarshal(row.DeclinedFields, &outcome.DeclinedFields); err != nil {
			return nil, nil, fmt.Errorf("unmarshal declined fields: %w", err)
		}
	}
	verdicts := models.VerdictMap{}
	if len(row.Verdicts) > 0 {
		if err := json.Unmarshal(row.Verdicts, &verdicts); err != nil {
			return nil, nil, fmt.Errorf("unmarshal verdicts: %w", err)
		}
	}
	return &outcome, verdicts, nil
}
