package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuslink/sar-portal-api/internal/models"
)

// studentColumns lists every persisted column of the students table in
// declaration order. Insert and update statements are derived from this
// list so the 60-odd profile fields stay in one place.
var studentColumns = []string{
	"id", "user_id", "status",
	"first_name", "middle_name", "last_name", "gender",
	"date_of_birth", "blood_group", "nationality", "religion",
	"category", "aadhar_number", "phone", "alternate_phone",
	"email", "alternate_email", "permanent_address", "current_address",
	"enrollment_number", "course", "branch", "current_semester",
	"admission_year", "class_x_board", "class_x_school", "class_x_year",
	"class_x_percentage", "class_xii_board", "class_xii_school",
	"class_xii_year", "class_xii_percentage", "entrance_exam", "entrance_rank",
	"father_name", "father_occupation", "father_phone", "father_email",
	"mother_name", "mother_occupation", "mother_phone", "mother_email",
	"guardian_name", "guardian_relation", "guardian_phone", "annual_income",
	"photo", "signature", "aadhar_card", "class_x_marksheet",
	"class_xii_marksheet", "transfer_certificate", "migration_certificate",
	"character_certificate", "income_certificate", "caste_certificate",
	"domicile_certificate", "entrance_scorecard", "allotment_letter",
	"fee_receipt", "medical_certificate", "gap_certificate",
	"anti_ragging_affidavit", "bonafide_certificate",
	"created_at", "updated_at",
}

var (
	studentSelectList = strings.Join(studentColumns, ", ")
	studentInsertSQL  = fmt.Sprintf(
		"INSERT INTO students (%s) VALUES (:%s)",
		studentSelectList,
		strings.Join(studentColumns, ", :"),
	)
	studentUpdateSQL = buildStudentUpdateSQL()
)

func buildStudentUpdateSQL() string {
	sets := make([]string, 0, len(studentColumns))
	for _, col := range studentColumns {
		if col == "id" || col == "created_at" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = :%s", col, col))
	}
	return fmt.Sprintf("UPDATE students SET %s WHERE id = :id", strings.Join(sets, ", "))
}

// StudentRepository manages persistence for student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters with a total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	baseQuery := "FROM students WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Course != "" {
		conditions = append(conditions, fmt.Sprintf("course = $%d", len(args)+1))
		args = append(args, filter.Course)
	}
	if filter.Branch != "" {
		conditions = append(conditions, fmt.Sprintf("branch = $%d", len(args)+1))
		args = append(args, filter.Branch)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(enrollment_number) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"first_name":        true,
		"enrollment_number": true,
		"current_semester":  true,
		"created_at":        true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		studentSelectList, baseQuery, sortBy, sortOrder, pageSize, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student profile by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1 LIMIT 1", studentSelectList)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID fetches the profile owned by the given portal user.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE user_id = $1 LIMIT 1", studentSelectList)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByEnrollment checks if an enrollment number is taken, optionally
// excluding an ID.
func (r *StudentRepository) ExistsByEnrollment(ctx context.Context, enrollment string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE enrollment_number = $1"
	args := []interface{}{enrollment}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create inserts a new student profile.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.Status == "" {
		student.Status = models.StudentStatusPending
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if _, err := r.db.NamedExecContext(ctx, studentInsertSQL, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of the profile.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, studentUpdateSQL, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpdateStatus moves the profile to a new review status.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	const query = `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check student status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a student profile.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM students WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
