package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/sar-portal-api/internal/models"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
)

type stubRecordStore struct {
	records   map[string]*models.AcademicRecord
	exists    bool
	existsErr error
	created   *models.AcademicRecord
	updated   *models.AcademicRecord
	deleted   string

	lastExcludeID string
}

func (s *stubRecordStore) ListByStudent(_ context.Context, studentID string) ([]models.AcademicRecord, error) {
	var out []models.AcademicRecord
	for _, r := range s.records {
		if r.StudentID == studentID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRecordStore) FindByID(_ context.Context, id string) (*models.AcademicRecord, error) {
	if r, ok := s.records[id]; ok {
		copy := *r
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubRecordStore) ExistsBySemester(_ context.Context, _ string, _ int, excludeID string) (bool, error) {
	s.lastExcludeID = excludeID
	return s.exists, s.existsErr
}

func (s *stubRecordStore) Create(_ context.Context, record *models.AcademicRecord) error {
	s.created = record
	return nil
}

func (s *stubRecordStore) Update(_ context.Context, record *models.AcademicRecord) error {
	s.updated = record
	return nil
}

func (s *stubRecordStore) Delete(_ context.Context, id string) error {
	s.deleted = id
	return nil
}

func validRecord() *models.AcademicRecord {
	return &models.AcademicRecord{
		ID:                   "rec-1",
		StudentID:            "s-1",
		Semester:             3,
		AcademicYear:         "2024-25",
		SGPA:                 8.4,
		CGPA:                 8.1,
		AttendancePercentage: 91,
		TotalCredits:         24,
		EarnedCredits:        24,
		SemesterResult:       models.SemesterResultPass,
	}
}

func f(v float64) *float64 { return &v }

func TestRecordValidateRanges(t *testing.T) {
	svc := NewRecordService(&stubRecordStore{}, nil, nil, nil)

	cases := []struct {
		name   string
		mutate func(*models.AcademicRecord)
		field  string
	}{
		{"semester too low", func(r *models.AcademicRecord) { r.Semester = 0 }, "semester"},
		{"semester too high", func(r *models.AcademicRecord) { r.Semester = 9 }, "semester"},
		{"missing year", func(r *models.AcademicRecord) { r.AcademicYear = "" }, "academic_year"},
		{"sgpa above scale", func(r *models.AcademicRecord) { r.SGPA = 10.5 }, "sgpa"},
		{"cgpa negative", func(r *models.AcademicRecord) { r.CGPA = -0.1 }, "cgpa"},
		{"attendance above 100", func(r *models.AcademicRecord) { r.AttendancePercentage = 101 }, "attendance_percentage"},
		{"negative credits", func(r *models.AcademicRecord) { r.TotalCredits = -1 }, "total_credits"},
		{"negative backlogs", func(r *models.AcademicRecord) { r.BacklogCount = -1 }, "backlog_count"},
		{"unknown result", func(r *models.AcademicRecord) { r.SemesterResult = "banana" }, "semester_result"},
		{"missing result", func(r *models.AcademicRecord) { r.SemesterResult = "" }, "semester_result"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := validRecord()
			tc.mutate(record)
			err := svc.Validate(record)
			require.Error(t, err)
			failures := appErrors.FailuresFrom(err)
			require.Len(t, failures, 1)
			assert.Equal(t, tc.field, failures[0].Field)
		})
	}

	assert.NoError(t, svc.Validate(validRecord()))
}

func TestRecordValidateBoundaryValuesPass(t *testing.T) {
	svc := NewRecordService(&stubRecordStore{}, nil, nil, nil)

	record := validRecord()
	record.Semester = 1
	record.SGPA = 0
	record.CGPA = 10
	record.AttendancePercentage = 0
	require.NoError(t, svc.Validate(record))

	record.Semester = 8
	record.AttendancePercentage = 100
	require.NoError(t, svc.Validate(record))
}

func TestSubjectMarkConsistency(t *testing.T) {
	svc := NewRecordService(&stubRecordStore{}, nil, nil, nil)

	subject := &models.Subject{
		Code: "CS301", Name: "Operating Systems", Type: models.SubjectTypeTheory, Credits: 4,
		InternalTheory: f(30), ExternalTheory: f(65), TotalTheory: f(94),
	}
	err := svc.ValidateSubject(subject)
	require.Error(t, err)
	failures := appErrors.FailuresFrom(err)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Field, "total_theory")

	// Within tolerance is accepted.
	subject.TotalTheory = f(95.005)
	assert.NoError(t, svc.ValidateSubject(subject))

	// A total with missing components compares against zero.
	missing := &models.Subject{Code: "CS302", Name: "Networks", Credits: 4, TotalPractical: f(20)}
	err = svc.ValidateSubject(missing)
	require.Error(t, err)
	assert.Contains(t, appErrors.FailuresFrom(err)[0].Field, "total_practical")
}

func TestSubjectTypeMembership(t *testing.T) {
	svc := NewRecordService(&stubRecordStore{}, nil, nil, nil)

	subject := &models.Subject{Code: "CS303", Name: "Compilers", Type: "seminar", Credits: 4}
	err := svc.ValidateSubject(subject)
	require.Error(t, err)
	failures := appErrors.FailuresFrom(err)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Field, "subject_type")

	// Leaving the type out is allowed.
	subject.Type = ""
	assert.NoError(t, svc.ValidateSubject(subject))
}

func TestRecomputeTotalsOverwritesAndIsIdempotent(t *testing.T) {
	svc := NewRecordService(&stubRecordStore{}, nil, nil, nil)

	record := validRecord()
	record.Subjects = []models.Subject{
		{Code: "CS301", Name: "OS", InternalTheory: f(30), ExternalTheory: f(65), TotalTheory: f(94)},
		{Code: "CS302", Name: "Networks", InternalPractical: f(18)},
		{Code: "HU101", Name: "Ethics"},
	}

	svc.RecomputeTotals(record)
	require.NotNil(t, record.Subjects[0].TotalTheory)
	assert.InDelta(t, 95, *record.Subjects[0].TotalTheory, 0.0001)
	require.NotNil(t, record.Subjects[1].TotalPractical)
	assert.InDelta(t, 18, *record.Subjects[1].TotalPractical, 0.0001)
	assert.Nil(t, record.Subjects[2].TotalTheory)
	assert.Nil(t, record.Subjects[2].TotalPractical)

	// Running again changes nothing.
	svc.RecomputeTotals(record)
	assert.InDelta(t, 95, *record.Subjects[0].TotalTheory, 0.0001)
	assert.InDelta(t, 18, *record.Subjects[1].TotalPractical, 0.0001)
	assert.NoError(t, svc.Validate(record))
}

func TestRecordCreateRejectsDuplicateSemester(t *testing.T) {
	store := &stubRecordStore{exists: true}
	svc := NewRecordService(store, nil, nil, nil)

	_, err := svc.Create(context.Background(), validRecord(), "u-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateSemester.Code, appErr.Code)
	assert.Nil(t, store.created)
}

func TestRecordUpdateExcludesOwnIDFromDuplicateCheck(t *testing.T) {
	store := &stubRecordStore{exists: false}
	svc := NewRecordService(store, nil, nil, nil)

	record := validRecord()
	_, err := svc.Update(context.Background(), record, "u-1")
	require.NoError(t, err)
	assert.Equal(t, record.ID, store.lastExcludeID)
	assert.NotNil(t, store.updated)
}

func TestRecordCreateValidationPersistsNothing(t *testing.T) {
	store := &stubRecordStore{}
	svc := NewRecordService(store, nil, nil, nil)

	record := validRecord()
	record.Semester = 12
	_, err := svc.Create(context.Background(), record, "u-1")
	require.Error(t, err)
	assert.Nil(t, store.created)
	assert.Empty(t, store.lastExcludeID)
}

func TestRecordCreateRecomputesTotals(t *testing.T) {
	store := &stubRecordStore{}
	svc := NewRecordService(store, nil, nil, nil)

	record := validRecord()
	record.Subjects = []models.Subject{
		{Code: "CS301", Name: "OS", InternalTheory: f(30), ExternalTheory: f(65)},
	}
	created, err := svc.Create(context.Background(), record, "u-1")
	require.NoError(t, err)
	require.NotNil(t, created.Subjects[0].TotalTheory)
	assert.InDelta(t, 95, *created.Subjects[0].TotalTheory, 0.0001)
	require.NotNil(t, store.created)
}

func TestRecordUpdateOverwritesStaleTotal(t *testing.T) {
	record := validRecord()
	record.Subjects = []models.Subject{
		{Code: "CS301", Name: "OS", InternalTheory: f(30), ExternalTheory: f(65), TotalTheory: f(94)},
	}
	store := &stubRecordStore{records: map[string]*models.AcademicRecord{"rec-1": record}}
	svc := NewRecordService(store, nil, nil, nil)

	// The stale total is overwritten on the way in, not rejected.
	updated, err := svc.Update(context.Background(), record, "u-1")
	require.NoError(t, err)
	assert.InDelta(t, 95, *updated.Subjects[0].TotalTheory, 0.0001)
	require.NotNil(t, store.updated)

	// The explicit recompute endpoint reaches the same state.
	recomputed, err := svc.Recompute(context.Background(), "rec-1", "u-1")
	require.NoError(t, err)
	assert.InDelta(t, 95, *recomputed.Subjects[0].TotalTheory, 0.0001)
}
