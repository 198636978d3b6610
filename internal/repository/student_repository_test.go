package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/sar-portal-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "status", "first_name", "last_name", "enrollment_number", "current_semester"}).
		AddRow("s-1", "PENDING", "Asha", "Verma", "EN-001", 3)
	mock.ExpectQuery(`SELECT .+ FROM students WHERE 1=1 AND status = \$1 ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs(models.StudentStatusPending).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students WHERE 1=1 AND status = \$1`).
		WithArgs(models.StudentStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Status: models.StudentStatusPending})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "EN-001", students[0].EnrollmentNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByEnrollment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM students WHERE enrollment_number = \$1 AND id <> \$2 LIMIT 1`).
		WithArgs("EN-001", "s-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByEnrollment(context.Background(), "EN-001", "s-1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(`SELECT 1 FROM students WHERE enrollment_number = \$1 LIMIT 1`).
		WithArgs("EN-002").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err = repo.ExistsByEnrollment(context.Background(), "EN-002", "")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := models.Student{FirstName: "Asha", LastName: "Verma", EnrollmentNumber: "EN-001"}
	err := repo.Create(context.Background(), &student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, models.StudentStatusPending, student.Status)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
