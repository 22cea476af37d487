package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-transcript-api/internal/academic"
	"github.com/noah-isme/sma-transcript-api/internal/dto"
	"github.com/noah-isme/sma-transcript-api/internal/models"
	appErrors "github.com/noah-isme/sma-transcript-api/pkg/errors"
	"github.com/noah-isme/sma-transcript-api/pkg/export"
	"github.com/noah-isme/sma-transcript-api/pkg/storage"
)

const (
	transcriptDocumentTitle = "Official High School Transcript"
	listDocumentTitle       = "Transcript Register"
	contentTypePDF          = "application/pdf"
	contentTypeCSV          = "text/csv"
)

type historyProvider interface {
	Get(ctx context.Context, studentID string) (*models.AcademicHistory, error)
}

type transcriptProvider interface {
	Get(ctx context.Context, id string) (*models.Transcript, error)
	List(ctx context.Context, filter models.TranscriptFilter) ([]models.Transcript, *models.Pagination, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderRecord(doc export.AcademicRecord) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix            string
	ResultTTL            time.Duration
	DefaultPrincipalName string
}

// ExportResult captures a stored export and its signed download link.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders transcripts and academic histories into documents
// and persists asynchronous results.
type ExportService struct {
	histories   historyProvider
	transcripts transcriptProvider
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
	now         func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(histories historyProvider, transcripts transcriptProvider, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		histories:   histories,
		transcripts: transcripts,
		storage:     store,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// ExportTranscript renders a single transcript.
func (s *ExportService) ExportTranscript(ctx context.Context, id string, format models.ExportFormat) (*dto.ExportFile, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, "format must be pdf or csv")
	}
	transcript, err := s.transcripts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	history := academic.BuildHistory(transcript.Student.StudentID, []models.Transcript{*transcript})
	doc := s.buildRecord(history, transcriptDocumentTitle)
	name := fmt.Sprintf("transcript_%s_%s", sanitizeFilename(transcript.Student.StudentID), sanitizeFilename(transcript.Student.Year))
	return s.renderRecord(doc, name, format)
}

// ExportHistory renders the multi-year academic record of a student.
func (s *ExportService) ExportHistory(ctx context.Context, studentID string, format models.ExportFormat) (*dto.ExportFile, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, "format must be pdf or csv")
	}
	history, err := s.histories.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if history.IsEmpty() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no academic history")
	}
	doc := s.buildRecord(history, transcriptDocumentTitle)
	name := fmt.Sprintf("academic_history_%s", sanitizeFilename(history.StudentID))
	return s.renderRecord(doc, name, format)
}

// ExportTranscriptList renders the filtered transcript listing as a register.
func (s *ExportService) ExportTranscriptList(ctx context.Context, filter models.TranscriptFilter, format models.ExportFormat) (*dto.ExportFile, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, "format must be pdf or csv")
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 100
	}
	transcripts, _, err := s.transcripts.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	dataset := transcriptListDataset(transcripts)

	var data []byte
	switch format {
	case models.ExportFormatPDF:
		data, err = s.pdf.Render(dataset, listDocumentTitle)
	default:
		data, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript list")
	}
	name := "transcripts_" + s.now().UTC().Format("20060102_150405")
	return exportFile(name, format, data), nil
}

// Generate renders the document described by job and stores it behind a signed token.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	var (
		file *dto.ExportFile
		err  error
	)
	switch job.Type {
	case models.ExportTypeAcademicHistory:
		file, err = s.ExportHistory(ctx, job.Params.StudentID, job.Params.Format)
	case models.ExportTypeTranscript:
		file, err = s.ExportTranscript(ctx, job.Params.TranscriptID, job.Params.Format)
	default:
		err = fmt.Errorf("unsupported export type %s", job.Type)
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s/%s_%s", job.ID, s.now().UTC().Format("20060102_150405"), file.Filename)
	relPath, err := s.storage.Save(filename, file.Data)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export stored", zap.String("job_id", job.ID), zap.String("path", relPath))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (the configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) renderRecord(doc export.AcademicRecord, name string, format models.ExportFormat) (*dto.ExportFile, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case models.ExportFormatPDF:
		data, err = s.pdf.RenderRecord(doc)
	default:
		data, err = s.csv.Render(export.RecordDataset(doc))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render document")
	}
	return exportFile(name, format, data), nil
}

// buildRecord maps the history view model onto the document layout. Years
// keep display order, newest first.
func (s *ExportService) buildRecord(history *models.AcademicHistory, title string) export.AcademicRecord {
	doc := export.AcademicRecord{
		Title:        title,
		GradingScale: export.DefaultGradingScale(),
		GeneratedAt:  s.now(),
		Summary: []export.Field{
			{Label: "Cumulative GPA", Value: formatGPA(history.Summary.CumulativeGPA)},
			{Label: "Credits Earned", Value: formatCredits(history.Summary.TotalCredits)},
			{Label: "Years Completed", Value: strconv.Itoa(history.Summary.YearsCompleted)},
		},
	}
	if profile := history.Profile; profile != nil {
		school := profile.School
		doc.Institution = school.SchoolName.String()
		doc.PrincipalName = school.PrincipalName.Or(s.cfg.DefaultPrincipalName)
		doc.Student = []export.Field{
			{Label: "Student Name", Value: profile.FullName},
			{Label: "Gender", Value: profile.Gender.String()},
			{Label: "Student ID", Value: profile.StudentID},
			{Label: "Grade Level", Value: school.GradeLevel.String()},
			{Label: "Address", Value: school.StudentAddress.String()},
			{Label: "School Name", Value: school.SchoolName.String()},
			{Label: "School Code", Value: school.SchoolCode.String()},
			{Label: "School Phone", Value: school.SchoolPhone.String()},
			{Label: "School Address", Value: school.SchoolAddress.String()},
		}
	}
	for _, record := range history.Records {
		section := export.YearSection{
			Year:       record.Year,
			GradeLevel: record.Profile.GradeLevel.String(),
			School:     record.Profile.SchoolName.String(),
			Credits:    formatCredits(record.TotalCredits),
			GPA:        formatGPA(record.GPA),
			Courses:    make([]export.CourseLine, 0, len(record.Courses)),
		}
		for _, course := range record.Courses {
			section.Courses = append(section.Courses, export.CourseLine{
				Code:    course.Code,
				Title:   course.Name,
				Credits: formatCredits(float64(course.CreditHours)),
				Grade:   course.Grade,
			})
		}
		doc.Years = append(doc.Years, section)
	}
	return doc
}

var transcriptListHeaders = []string{"Student ID", "Student Name", "Year", "Grade Level", "School", "Units", "Credits", "GPA", "Created At"}

func transcriptListDataset(transcripts []models.Transcript) export.Dataset {
	rows := make([]map[string]string, 0, len(transcripts))
	for _, t := range transcripts {
		rows = append(rows, map[string]string{
			"Student ID":   t.Student.StudentID,
			"Student Name": t.Student.FullName,
			"Year":         t.Student.Year,
			"Grade Level":  t.Student.GradeLevel.String(),
			"School":       t.Student.SchoolName.String(),
			"Units":        strconv.Itoa(len(t.Units)),
			"Credits":      formatCredits(t.TotalCreditHours),
			"GPA":          formatGPA(t.GPA),
			"Created At":   t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: transcriptListHeaders, Rows: rows, Numeric: []string{"Units", "Credits", "GPA"}}
}

func exportFile(name string, format models.ExportFormat, data []byte) *dto.ExportFile {
	contentType := contentTypeCSV
	if format == models.ExportFormatPDF {
		contentType = contentTypePDF
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("%s.%s", name, format),
		ContentType: contentType,
		Data:        data,
	}
}

func formatGPA(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatCredits prints whole credits without decimals and half credits as 1.5.
func formatCredits(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
