package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/sar-portal-api/internal/models"
)

func TestAcademicRecordRepositoryExistsBySemester(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicRecordRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM academic_records WHERE student_id = \$1 AND semester = \$2 LIMIT 1`).
		WithArgs("s-1", 3).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsBySemester(context.Background(), "s-1", 3, "")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAcademicRecordRepositoryExistsBySemesterExcludesOwnID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicRecordRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM academic_records WHERE student_id = \$1 AND semester = \$2 AND id <> \$3 LIMIT 1`).
		WithArgs("s-1", 3, "rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err := repo.ExistsBySemester(context.Background(), "s-1", 3, "rec-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicRecordRepositoryCreateInsertsSubjects(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO academic_records").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO record_subjects").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO record_subjects").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	record := models.AcademicRecord{
		StudentID:      "s-1",
		Semester:       2,
		AcademicYear:   "2024-25",
		SGPA:           8.1,
		CGPA:           8.0,
		SemesterResult: models.SemesterResultPass,
		Subjects: []models.Subject{
			{Code: "CS201", Name: "Data Structures", Type: models.SubjectTypeTheory, Credits: 4},
			{Code: "CS202", Name: "DS Lab", Type: models.SubjectTypePractical, Credits: 1},
		},
	}
	err := repo.Create(context.Background(), &record)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, record.ID, record.Subjects[0].RecordID)
	assert.Equal(t, 0, record.Subjects[0].Position)
	assert.Equal(t, 1, record.Subjects[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicRecordRepositoryUpdateWritesSemester(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE academic_records SET semester = \$1, academic_year = \$2`).
		WithArgs(5, "2024-25", 8.4, 8.1, 91.0, 24.0, 24.0, 0, models.SemesterResultPass, sqlmock.AnyArg(), "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM record_subjects WHERE record_id = \$1`).
		WithArgs("rec-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	record := models.AcademicRecord{
		ID:                   "rec-1",
		StudentID:            "s-1",
		Semester:             5,
		AcademicYear:         "2024-25",
		SGPA:                 8.4,
		CGPA:                 8.1,
		AttendancePercentage: 91,
		TotalCredits:         24,
		EarnedCredits:        24,
		SemesterResult:       models.SemesterResultPass,
	}
	err := repo.Update(context.Background(), &record)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicRecordRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicRecordRepository(db)

	mock.ExpectExec("DELETE FROM academic_records").
		WithArgs("rec-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "rec-404")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
