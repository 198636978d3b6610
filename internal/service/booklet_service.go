package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuslink/sar-portal-api/internal/models"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
	"github.com/campuslink/sar-portal-api/pkg/export"
	"github.com/campuslink/sar-portal-api/pkg/storage"
)

// BookletFormat names the supported export formats.
type BookletFormat string

const (
	BookletFormatPDF BookletFormat = "pdf"
	BookletFormatCSV BookletFormat = "csv"
)

// BookletExport describes a generated file and its signed download token.
type BookletExport struct {
	ExportID  string    `json:"export_id"`
	FileName  string    `json:"file_name"`
	Format    string    `json:"format"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type bookletStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type bookletRecordStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.AcademicRecord, error)
}

type bookletPortfolioStore interface {
	ListInternships(ctx context.Context, studentID string) ([]models.Internship, error)
	ListAchievements(ctx context.Context, studentID string) ([]models.Achievement, error)
}

type bookletBlobStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

// BookletService assembles the SAR booklet from profile, record and
// portfolio data and renders it to PDF or CSV behind signed download URLs.
type BookletService struct {
	students  bookletStudentStore
	records   bookletRecordStore
	portfolio bookletPortfolioStore
	blobs     bookletBlobStore
	signer    *storage.SignedURLSigner
	pdf       *export.PDFExporter
	csv       *export.CSVExporter
	audit     auditLogger
	logger    *zap.Logger
}

// NewBookletService constructs the service.
func NewBookletService(students bookletStudentStore, records bookletRecordStore, portfolio bookletPortfolioStore, blobs bookletBlobStore, signer *storage.SignedURLSigner, audit auditLogger, logger *zap.Logger) *BookletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookletService{
		students:  students,
		records:   records,
		portfolio: portfolio,
		blobs:     blobs,
		signer:    signer,
		pdf:       export.NewPDFExporter(),
		csv:       export.NewCSVExporter(),
		audit:     audit,
		logger:    logger,
	}
}

// Export renders the booklet and stores it, returning a signed token.
func (s *BookletService) Export(ctx context.Context, studentID string, format BookletFormat, actorID string) (*BookletExport, error) {
	if format != BookletFormatPDF && format != BookletFormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	records, err := s.records.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic records")
	}
	internships, err := s.portfolio.ListInternships(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load internships")
	}
	achievements, err := s.portfolio.ListAchievements(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load achievements")
	}

	exportID := uuid.NewString()
	title := fmt.Sprintf("SAR Booklet - %s %s (%s)", student.FirstName, student.LastName, student.EnrollmentNumber)

	var payload []byte
	switch format {
	case BookletFormatPDF:
		payload, err = s.pdf.RenderSections(title, bookletSections(student, records, internships, achievements))
	case BookletFormatCSV:
		payload, err = s.csv.Render(recordsDataset(records))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render booklet")
	}

	fileName := fmt.Sprintf("booklets/%s/%s.%s", studentID, exportID, format)
	if _, err := s.blobs.Save(fileName, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store booklet")
	}

	token, expiresAt, err := s.signer.Generate(exportID, fileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	if s.audit != nil {
		entry := &models.AuditLog{
			UserID:     actorID,
			Action:     models.AuditActionBookletExport,
			EntityType: "student",
			EntityID:   studentID,
			Detail:     string(format),
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to write audit log", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	return &BookletExport{
		ExportID:  exportID,
		FileName:  fileName,
		Format:    string(format),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve validates a download token and opens the referenced file.
func (s *BookletService) Resolve(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.blobs.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, relPath, nil
}

func bookletSections(student *models.Student, records []models.AcademicRecord, internships []models.Internship, achievements []models.Achievement) []export.Section {
	profile := export.Dataset{
		Headers: []string{"Field", "Value"},
		Rows: []map[string]string{
			{"Field": "Name", "Value": strings.TrimSpace(student.FirstName + " " + student.LastName)},
			{"Field": "Enrollment", "Value": student.EnrollmentNumber},
			{"Field": "Course", "Value": student.Course},
			{"Field": "Branch", "Value": student.Branch},
			{"Field": "Semester", "Value": strconv.Itoa(student.CurrentSemester)},
			{"Field": "Email", "Value": student.Email},
			{"Field": "Status", "Value": string(student.Status)},
		},
	}

	internRows := make([]map[string]string, 0, len(internships))
	for _, i := range internships {
		internRows = append(internRows, map[string]string{
			"Company":  i.Company,
			"Position": i.Position,
			"From":     i.StartDate,
			"To":       i.EndDate,
			"Skills":   strings.Join(i.Skills, ", "),
		})
	}

	achieveRows := make([]map[string]string, 0, len(achievements))
	for _, a := range achievements {
		achieveRows = append(achieveRows, map[string]string{
			"Title":        a.Title,
			"Organization": a.Organization,
			"Date":         a.Date,
			"Category":     a.Category,
		})
	}

	return []export.Section{
		{Title: "Profile", Data: profile},
		{Title: "Academic Records", Data: recordsDataset(records)},
		{Title: "Internships", Data: export.Dataset{Headers: []string{"Company", "Position", "From", "To", "Skills"}, Rows: internRows}},
		{Title: "Achievements", Data: export.Dataset{Headers: []string{"Title", "Organization", "Date", "Category"}, Rows: achieveRows}},
	}
}

func recordsDataset(records []models.AcademicRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, map[string]string{
			"Semester":   strconv.Itoa(r.Semester),
			"Year":       r.AcademicYear,
			"SGPA":       fmt.Sprintf("%.2f", r.SGPA),
			"CGPA":       fmt.Sprintf("%.2f", r.CGPA),
			"Attendance": fmt.Sprintf("%.1f%%", r.AttendancePercentage),
			"Credits":    fmt.Sprintf("%.1f/%.1f", r.EarnedCredits, r.TotalCredits),
			"Backlogs":   strconv.Itoa(r.BacklogCount),
			"Result":     string(r.SemesterResult),
		})
	}
	return export.Dataset{
		Headers: []string{"Semester", "Year", "SGPA", "CGPA", "Attendance", "Credits", "Backlogs", "Result"},
		Rows:    rows,
	}
}
