package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-transcript-api/internal/academic"
	"github.com/noah-isme/sma-transcript-api/internal/dto"
	"github.com/noah-isme/sma-transcript-api/internal/models"
	appErrors "github.com/noah-isme/sma-transcript-api/pkg/errors"
	"github.com/noah-isme/sma-transcript-api/pkg/importer"
)

// Spreadsheet columns every transcript import must carry.
var importRequiredColumns = []string{
	"student_id", "full_name", "year", "grade_level", "school_name",
	"unit_code", "unit_name", "grade", "credit_hours",
}

// maxImportCreditHours matches the credit_hours bound of transcript payloads.
const maxImportCreditHours = 100

type transcriptRecorder interface {
	Record(ctx context.Context, snapshot models.StudentSnapshot, units models.Units, source string) (*models.Transcript, error)
}

// ImportService turns spreadsheet uploads into transcripts.
type ImportService struct {
	transcripts transcriptRecorder
	maxSize     int64
	logger      *zap.Logger
}

// NewImportService constructs the import service; maxSize <= 0 disables the size check.
func NewImportService(transcripts transcriptRecorder, maxSize int64, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{transcripts: transcripts, maxSize: maxSize, logger: logger}
}

// MaxSize is the largest accepted upload in bytes.
func (s *ImportService) MaxSize() int64 {
	return s.maxSize
}

type importGroup struct {
	firstRow int
	snapshot models.StudentSnapshot
	units    models.Units
}

// ImportTranscripts reads the first sheet and creates one transcript per
// (student_id, year) pair. Invalid rows are reported and skipped.
func (s *ImportService) ImportTranscripts(ctx context.Context, data []byte) (*dto.ImportResult, error) {
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}

	sheet, err := importer.ReadFirstSheet(data, importRequiredColumns)
	if err != nil {
		var missing *importer.MissingColumnsError
		switch {
		case errors.As(err, &missing):
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, missing.Error())
		case errors.Is(err, importer.ErrEmptyWorkbook):
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "workbook has no data rows")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file is not a valid xlsx workbook")
		}
	}

	result := &dto.ImportResult{TranscriptIDs: []string{}, Errors: []dto.ImportRowError{}}
	groups := make(map[string]*importGroup)
	order := make([]string, 0)
	for _, row := range sheet.Rows {
		snapshot, unit, err := parseImportRow(row)
		if err != nil {
			result.Errors = append(result.Errors, dto.ImportRowError{Row: row.Number, Message: err.Error()})
			continue
		}
		key := snapshot.StudentID + "\x00" + snapshot.Year
		group, ok := groups[key]
		if !ok {
			group = &importGroup{firstRow: row.Number, snapshot: snapshot}
			groups[key] = group
			order = append(order, key)
		} else {
			group.snapshot = mergeSnapshot(group.snapshot, snapshot)
		}
		group.units = append(group.units, unit)
	}

	for _, key := range order {
		group := groups[key]
		transcript, err := s.transcripts.Record(ctx, group.snapshot, group.units, GPASourceImport)
		if err != nil {
			s.logger.Warn("import transcript failed",
				zap.String("student_id", group.snapshot.StudentID),
				zap.String("year", group.snapshot.Year),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, dto.ImportRowError{Row: group.firstRow, Message: "failed to store transcript"})
			continue
		}
		result.Created++
		result.TranscriptIDs = append(result.TranscriptIDs, transcript.ID)
	}
	s.logger.Info("transcript import finished",
		zap.Int("rows", len(sheet.Rows)),
		zap.Int("created", result.Created),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func parseImportRow(row importer.Row) (models.StudentSnapshot, models.Unit, error) {
	for _, column := range []string{"student_id", "full_name", "year", "unit_code", "unit_name"} {
		if row.Get(column) == "" {
			return models.StudentSnapshot{}, models.Unit{}, fmt.Errorf("%s is required", column)
		}
	}
	grade := strings.ToUpper(row.Get("grade"))
	if !academic.IsValidGrade(grade) {
		return models.StudentSnapshot{}, models.Unit{}, fmt.Errorf("invalid grade %q", row.Get("grade"))
	}
	hours, err := strconv.ParseFloat(row.Get("credit_hours"), 64)
	if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 || hours > maxImportCreditHours {
		return models.StudentSnapshot{}, models.Unit{}, fmt.Errorf("credit_hours must be a number between 0 and %d", maxImportCreditHours)
	}
	gender := models.Known(strings.ToUpper(row.Get("gender")))
	if value, ok := gender.Get(); ok && value != models.GenderMale && value != models.GenderFemale && value != models.GenderOther {
		return models.StudentSnapshot{}, models.Unit{}, fmt.Errorf("invalid gender %q", row.Get("gender"))
	}

	snapshot := models.StudentSnapshot{
		FullName:       row.Get("full_name"),
		StudentID:      row.Get("student_id"),
		Gender:         gender,
		GradeLevel:     models.Known(row.Get("grade_level")),
		Year:           row.Get("year"),
		SchoolName:     models.Known(row.Get("school_name")),
		SchoolCode:     models.Known(row.Get("school_code")),
		SchoolAddress:  models.Known(row.Get("school_address")),
		StudentAddress: models.Known(row.Get("student_address")),
		SchoolPhone:    models.Known(row.Get("school_phone")),
		PrincipalName:  models.Known(row.Get("principal_name")),
	}
	unit := models.Unit{
		Code:        row.Get("unit_code"),
		Name:        row.Get("unit_name"),
		Grade:       grade,
		CreditHours: models.CreditHours(hours),
	}
	return snapshot, unit, nil
}

// mergeSnapshot keeps the first known value of every optional field.
func mergeSnapshot(base, next models.StudentSnapshot) models.StudentSnapshot {
	if !base.Gender.IsKnown() {
		base.Gender = next.Gender
	}
	profile := next.SchoolProfile().Overlay(base.SchoolProfile())
	base.GradeLevel = profile.GradeLevel
	base.SchoolName = profile.SchoolName
	base.SchoolCode = profile.SchoolCode
	base.SchoolAddress = profile.SchoolAddress
	base.StudentAddress = profile.StudentAddress
	base.SchoolPhone = profile.SchoolPhone
	base.PrincipalName = profile.PrincipalName
	return base
}
