package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/sar-portal-api/internal/models"
)

func TestVerificationRepositorySaveOutcome(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewVerificationRepository(db)

	mock.ExpectExec("INSERT INTO verification_outcomes").
		WillReturnResult(sqlmock.NewResult(1, 1))

	verdicts := models.VerdictMap{}
	verdicts.Set(models.SectionDocuments, "photo", models.VerdictIncorrect)
	outcome := models.VerificationOutcome{
		StudentID:      "s-1",
		Status:         models.VerificationDeclined,
		DeclinedFields: []models.FieldRef{{Section: models.SectionDocuments, Field: "photo"}},
		ReviewedBy:     "u-1",
	}
	err := repo.SaveOutcome(context.Background(), &outcome, verdicts)
	require.NoError(t, err)
	assert.NotEmpty(t, outcome.ID)
	assert.False(t, outcome.ReviewedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationRepositoryFindLatestByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewVerificationRepository(db)

	declined, err := json.Marshal([]models.FieldRef{{Section: models.SectionPersonal, Field: "phone"}})
	require.NoError(t, err)
	verdicts := models.VerdictMap{}
	verdicts.Set(models.SectionPersonal, "phone", models.VerdictIncorrect)
	verdictPayload, err := json.Marshal(verdicts)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "student_id", "status", "declined_fields", "verdicts", "reason", "reviewed_by", "reviewed_at"}).
		AddRow("o-1", "s-1", "DECLINED", declined, verdictPayload, "bad phone", "u-1", time.Now())
	mock.ExpectQuery(`SELECT .+ FROM verification_outcomes WHERE student_id = \$1 ORDER BY reviewed_at DESC LIMIT 1`).
		WithArgs("s-1").
		WillReturnRows(rows)

	outcome, loaded, err := repo.FindLatestByStudent(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationDeclined, outcome.Status)
	require.Len(t, outcome.DeclinedFields, 1)
	assert.Equal(t, "phone", outcome.DeclinedFields[0].Field)
	assert.Equal(t, models.VerdictIncorrect, loaded.Get(models.SectionPersonal, "phone"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
