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

const recordSelectList = `id, student_id, semester, academic_year, sgpa, cgpa, attendance_percentage,
       total_credits, earned_credits, backlog_count, semester_result, created_at, updated_at`

const subjectSelectList = `id, record_id, position, code, name, subject_type, credits,
       internal_theory, external_theory, total_theory, theory_grade, theory_grade_points,
       internal_practical, external_practical, total_practical, practical_grade, practical_grade_points`

// AcademicRecordRepository persists semester records and their subject rows.
type AcademicRecordRepository struct {
	db *sqlx.DB
}

// NewAcademicRecordRepository constructs an AcademicRecordRepository.
func NewAcademicRecordRepository(db *sqlx.DB) *AcademicRecordRepository {
	return &AcademicRecordRepository{db: db}
}

// ListByStudent returns all records for a student ordered by semester, with
// subjects loaded in declaration order.
func (r *AcademicRecordRepository) ListByStudent(ctx context.Context, studentID string) ([]models.AcademicRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_records WHERE student_id = $1 ORDER BY semester ASC", recordSelectList)
	var records []models.AcademicRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list academic records: %w", err)
	}
	for i := range records {
		subjects, err := r.subjectsByRecord(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Subjects = subjects
	}
	return records, nil
}

// FindByID fetches one record with its subjects.
func (r *AcademicRecordRepository) FindByID(ctx context.Context, id string) (*models.AcademicRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_records WHERE id = $1 LIMIT 1", recordSelectList)
	var record models.AcademicRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	subjects, err := r.subjectsByRecord(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	record.Subjects = subjects
	return &record, nil
}

func (r *AcademicRecordRepository) subjectsByRecord(ctx context.Context, recordID string) ([]models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM record_subjects WHERE record_id = $1 ORDER BY position ASC", subjectSelectList)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, recordID); err != nil {
		return nil, fmt.Errorf("list record subjects: %w", err)
	}
	return subjects, nil
}

// ExistsBySemester checks whether the student already has a record for the
// semester, optionally excluding an ID so updates do not collide with
// themselves.
func (r *AcademicRecordRepository) ExistsBySemester(ctx context.Context, studentID string, semester int, excludeID string) (bool, error) {
	query := "SELECT 1 FROM academic_records WHERE student_id = $1 AND semester = $2"
	args := []interface{}{studentID, semester}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check semester record: %w", err)
	}
	return true, nil
}

// CountByStudent returns the number of semester records on file.
func (r *AcademicRecordRepository) CountByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM academic_records WHERE student_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID); err != nil {
		return 0, fmt.Errorf("count academic records: %w", err)
	}
	return count, nil
}

// Create inserts a record together with its subject rows in one transaction.
func (r *AcademicRecordRepository) Create(ctx context.Context, record *models.AcademicRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer tx.Rollback()

	const insertRecord = `INSERT INTO academic_records
	(id, student_id, semester, academic_year, sgpa, cgpa, attendance_percentage, total_credits, earned_credits, backlog_count, semester_result, created_at, updated_at)
	VALUES (:id, :student_id, :semester, :academic_year, :sgpa, :cgpa, :attendance_percentage, :total_credits, :earned_credits, :backlog_count, :semester_result, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertRecord, record); err != nil {
		return fmt.Errorf("create academic record: %w", err)
	}
	if err := r.insertSubjects(ctx, tx, record); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record tx: %w", err)
	}
	return nil
}

// Update overwrites the record and replaces its subject rows.
func (r *AcademicRecordRepository) Update(ctx context.Context, record *models.AcademicRecord) error {
	record.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer tx.Rollback()

	const updateRecord = `UPDATE academic_records SET semester = :semester, academic_year = :academic_year, sgpa = :sgpa, cgpa = :cgpa,
	attendance_percentage = :attendance_percentage, total_credits = :total_credits, earned_credits = :earned_credits,
	backlog_count = :backlog_count, semester_result = :semester_result, updated_at = :updated_at WHERE id = :id`
	result, err := tx.NamedExecContext(ctx, updateRecord, record)
	if err != nil {
		return fmt.Errorf("update academic record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check record update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM record_subjects WHERE record_id = $1`, record.ID); err != nil {
		return fmt.Errorf("clear record subjects: %w", err)
	}
	if err := r.insertSubjects(ctx, tx, record); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record tx: %w", err)
	}
	return nil
}

func (r *AcademicRecordRepository) insertSubjects(ctx context.Context, tx *sqlx.Tx, record *models.AcademicRecord) error {
	const insertSubject = `INSERT INTO record_subjects
	(id, record_id, position, code, name, subject_type, credits,
	 internal_theory, external_theory, total_theory, theory_grade, theory_grade_points,
	 internal_practical, external_practical, total_practical, practical_grade, practical_grade_points)
	VALUES (:id, :record_id, :position, :code, :name, :subject_type, :credits,
	 :internal_theory, :external_theory, :total_theory, :theory_grade, :theory_grade_points,
	 :internal_practical, :external_practical, :total_practical, :practical_grade, :practical_grade_points)`
	for i := range record.Subjects {
		subject := &record.Subjects[i]
		if subject.ID == "" {
			subject.ID = uuid.NewString()
		}
		subject.RecordID = record.ID
		subject.Position = i
		if _, err := tx.NamedExecContext(ctx, insertSubject, subject); err != nil {
			return fmt.Errorf("create record subject: %w", err)
		}
	}
	return nil
}

// Delete removes a record; subject rows cascade at the database level.
func (r *AcademicRecordRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM academic_records WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete academic record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check record delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
