package models

import "time"

// SemesterResult enumerates the outcome of a semester.
type SemesterResult string

const (
	SemesterResultOngoing  SemesterResult = "ongoing"
	SemesterResultPass     SemesterResult = "pass"
	SemesterResultFail     SemesterResult = "fail"
	SemesterResultDetained SemesterResult = "detained"
)

// SubjectType enumerates supported subject categories.
type SubjectType string

const (
	SubjectTypeTheory          SubjectType = "theory"
	SubjectTypePractical       SubjectType = "practical"
	SubjectTypeTheoryPractical SubjectType = "theory_practical"
	SubjectTypeElective        SubjectType = "elective"
	SubjectTypeAudit           SubjectType = "audit"
)

// ValidSemesterResult reports whether the value is one of the known results.
func ValidSemesterResult(result SemesterResult) bool {
	switch result {
	case SemesterResultOngoing, SemesterResultPass, SemesterResultFail, SemesterResultDetained:
		return true
	}
	return false
}

// ValidSubjectType reports whether the value is one of the known categories.
func ValidSubjectType(subjectType SubjectType) bool {
	switch subjectType {
	case SubjectTypeTheory, SubjectTypePractical, SubjectTypeTheoryPractical, SubjectTypeElective, SubjectTypeAudit:
		return true
	}
	return false
}

// AcademicRecord captures one semester of a student's academic history.
// At most one record may exist per (student, semester).
type AcademicRecord struct {
	ID                   string         `db:"id" json:"id"`
	StudentID            string         `db:"student_id" json:"student_id"`
	Semester             int            `db:"semester" json:"semester"`
	AcademicYear         string         `db:"academic_year" json:"academic_year"`
	SGPA                 float64        `db:"sgpa" json:"sgpa"`
	CGPA                 float64        `db:"cgpa" json:"cgpa"`
	AttendancePercentage float64        `db:"attendance_percentage" json:"attendance_percentage"`
	TotalCredits         float64        `db:"total_credits" json:"total_credits"`
	EarnedCredits        float64        `db:"earned_credits" json:"earned_credits"`
	BacklogCount         int            `db:"backlog_count" json:"backlog_count"`
	SemesterResult       SemesterResult `db:"semester_result" json:"semester_result"`
	Subjects             []Subject      `json:"subjects"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// Subject belongs to exactly one academic record. Theory and practical marks
// are tracked as independent groups; nil mark pointers mean "not entered".
type Subject struct {
	ID       string      `db:"id" json:"id"`
	RecordID string      `db:"record_id" json:"record_id"`
	Position int         `db:"position" json:"position"`
	Code     string      `db:"code" json:"code"`
	Name     string      `db:"name" json:"name"`
	Type     SubjectType `db:"subject_type" json:"subject_type"`
	Credits  float64     `db:"credits" json:"credits"`

	InternalTheory    *float64 `db:"internal_theory" json:"internal_theory,omitempty"`
	ExternalTheory    *float64 `db:"external_theory" json:"external_theory,omitempty"`
	TotalTheory       *float64 `db:"total_theory" json:"total_theory,omitempty"`
	TheoryGrade       string   `db:"theory_grade" json:"theory_grade,omitempty"`
	TheoryGradePoints *float64 `db:"theory_grade_points" json:"theory_grade_points,omitempty"`

	InternalPractical    *float64 `db:"internal_practical" json:"internal_practical,omitempty"`
	ExternalPractical    *float64 `db:"external_practical" json:"external_practical,omitempty"`
	TotalPractical       *float64 `db:"total_practical" json:"total_practical,omitempty"`
	PracticalGrade       string   `db:"practical_grade" json:"practical_grade,omitempty"`
	PracticalGradePoints *float64 `db:"practical_grade_points" json:"practical_grade_points,omitempty"`
}

// MarkGroup names one of the two independently tracked mark groups.
type MarkGroup string

const (
	MarkGroupTheory    MarkGroup = "theory"
	MarkGroupPractical MarkGroup = "practical"
)
