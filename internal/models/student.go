package models

import "time"

// StudentStatus tracks where a submitted profile sits in the review workflow.
type StudentStatus string

const (
	StudentStatusPending  StudentStatus = "PENDING"
	StudentStatusApproved StudentStatus = "APPROVED"
	StudentStatusDeclined StudentStatus = "DECLINED"
)

// Student holds an applicant profile. Columns are grouped by the four review
// sections; the authoritative per-section field lists live in profile.go.
type Student struct {
	ID     string        `db:"id" json:"id"`
	UserID *string       `db:"user_id" json:"user_id,omitempty"`
	Status StudentStatus `db:"status" json:"status"`

	// personal
	FirstName        string `db:"first_name" json:"first_name"`
	MiddleName       string `db:"middle_name" json:"middle_name"`
	LastName         string `db:"last_name" json:"last_name"`
	Gender           string `db:"gender" json:"gender"`
	DateOfBirth      string `db:"date_of_birth" json:"date_of_birth"`
	BloodGroup       string `db:"blood_group" json:"blood_group"`
	Nationality      string `db:"nationality" json:"nationality"`
	Religion         string `db:"religion" json:"religion"`
	Category         string `db:"category" json:"category"`
	AadharNumber     string `db:"aadhar_number" json:"aadhar_number"`
	Phone            string `db:"phone" json:"phone"`
	AlternatePhone   string `db:"alternate_phone" json:"alternate_phone"`
	Email            string `db:"email" json:"email"`
	AlternateEmail   string `db:"alternate_email" json:"alternate_email"`
	PermanentAddress string `db:"permanent_address" json:"permanent_address"`
	CurrentAddress   string `db:"current_address" json:"current_address"`

	// academic
	EnrollmentNumber string `db:"enrollment_number" json:"enrollment_number"`
	Course           string `db:"course" json:"course"`
	Branch           string `db:"branch" json:"branch"`
	CurrentSemester  int    `db:"current_semester" json:"current_semester"`
	AdmissionYear    string `db:"admission_year" json:"admission_year"`
	ClassXBoard      string `db:"class_x_board" json:"class_x_board"`
	ClassXSchool     string `db:"class_x_school" json:"class_x_school"`
	ClassXYear       string `db:"class_x_year" json:"class_x_year"`
	ClassXPercent    string `db:"class_x_percentage" json:"class_x_percentage"`
	ClassXIIBoard    string `db:"class_xii_board" json:"class_xii_board"`
	ClassXIISchool   string `db:"class_xii_school" json:"class_xii_school"`
	ClassXIIYear     string `db:"class_xii_year" json:"class_xii_year"`
	ClassXIIPercent  string `db:"class_xii_percentage" json:"class_xii_percentage"`
	EntranceExam     string `db:"entrance_exam" json:"entrance_exam"`
	EntranceRank     string `db:"entrance_rank" json:"entrance_rank"`

	// parent
	FatherName       string `db:"father_name" json:"father_name"`
	FatherOccupation string `db:"father_occupation" json:"father_occupation"`
	FatherPhone      string `db:"father_phone" json:"father_phone"`
	FatherEmail      string `db:"father_email" json:"father_email"`
	MotherName       string `db:"mother_name" json:"mother_name"`
	MotherOccupation string `db:"mother_occupation" json:"mother_occupation"`
	MotherPhone      string `db:"mother_phone" json:"mother_phone"`
	MotherEmail      string `db:"mother_email" json:"mother_email"`
	GuardianName     string `db:"guardian_name" json:"guardian_name"`
	GuardianRelation string `db:"guardian_relation" json:"guardian_relation"`
	GuardianPhone    string `db:"guardian_phone" json:"guardian_phone"`
	AnnualIncome     string `db:"annual_income" json:"annual_income"`

	// documents (file references stored as URLs)
	Photo                string `db:"photo" json:"photo"`
	Signature            string `db:"signature" json:"signature"`
	AadharCard           string `db:"aadhar_card" json:"aadhar_card"`
	ClassXMarksheet      string `db:"class_x_marksheet" json:"class_x_marksheet"`
	ClassXIIMarksheet    string `db:"class_xii_marksheet" json:"class_xii_marksheet"`
	TransferCertificate  string `db:"transfer_certificate" json:"transfer_certificate"`
	MigrationCertificate string `db:"migration_certificate" json:"migration_certificate"`
	CharacterCertificate string `db:"character_certificate" json:"character_certificate"`
	IncomeCertificate    string `db:"income_certificate" json:"income_certificate"`
	CasteCertificate     string `db:"caste_certificate" json:"caste_certificate"`
	DomicileCertificate  string `db:"domicile_certificate" json:"domicile_certificate"`
	EntranceScorecard    string `db:"entrance_scorecard" json:"entrance_scorecard"`
	AllotmentLetter      string `db:"allotment_letter" json:"allotment_letter"`
	FeeReceipt           string `db:"fee_receipt" json:"fee_receipt"`
	MedicalCertificate   string `db:"medical_certificate" json:"medical_certificate"`
	GapCertificate       string `db:"gap_certificate" json:"gap_certificate"`
	AntiRaggingAffidavit string `db:"anti_ragging_affidavit" json:"anti_ragging_affidavit"`
	BonafideCertificate  string `db:"bonafide_certificate" json:"bonafide_certificate"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Status    StudentStatus
	Course    string
	Branch    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
