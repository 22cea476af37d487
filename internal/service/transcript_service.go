package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-transcript-api/internal/academic"
	"github.com/noah-isme/sma-transcript-api/internal/dto"
	"github.com/noah-isme/sma-transcript-api/internal/models"
	appErrors "github.com/noah-isme/sma-transcript-api/pkg/errors"
)

type transcriptRepository interface {
	List(ctx context.Context, filter models.TranscriptFilter) ([]models.Transcript, int, error)
	FindByID(ctx context.Context, id string) (*models.Transcript, error)
	Create(ctx context.Context, transcript *models.Transcript) error
	Update(ctx context.Context, transcript *models.Transcript) error
	Delete(ctx context.Context, id string) error
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// TranscriptService owns transcript writes. GPA and credit totals are always
// derived from the units before persisting.
type TranscriptService struct {
	repo      transcriptRepository
	students  studentLookup
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTranscriptService constructs the transcript service.
func NewTranscriptService(repo transcriptRepository, students studentLookup, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TranscriptService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{
		repo:      repo,
		students:  students,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns transcripts newest first.
func (s *TranscriptService) List(ctx context.Context, filter models.TranscriptFilter) ([]models.Transcript, *models.Pagination, error) {
	filter.StudentID = strings.TrimSpace(filter.StudentID)
	filter.Year = strings.TrimSpace(filter.Year)
	start := time.Now()
	transcripts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transcripts")
	}
	s.metrics.ObserveDBQuery("transcripts_list", time.Since(start))
	if transcripts == nil {
		transcripts = []models.Transcript{}
	}
	return transcripts, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a transcript by ID.
func (s *TranscriptService) Get(ctx context.Context, id string) (*models.Transcript, error) {
	transcript, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transcript not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transcript")
	}
	return transcript, nil
}

// Create validates the payload and stores a new transcript.
func (s *TranscriptService) Create(ctx context.Context, req dto.TranscriptRequest) (*models.Transcript, error) {
	dto.NormaliseUnits(req.Units)
	req.Student.Gender = strings.ToUpper(strings.TrimSpace(req.Student.Gender))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transcript payload")
	}
	return s.Record(ctx, req.Student.Snapshot(), dto.ToUnits(req.Units), GPASourceWrite)
}

// CreateForStudent stores a transcript whose snapshot is copied from the
// registered student. Year and grade level may be overridden.
func (s *TranscriptService) CreateForStudent(ctx context.Context, id string, req dto.StudentTranscriptRequest) (*models.Transcript, error) {
	dto.NormaliseUnits(req.Units)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transcript payload")
	}
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	snapshot := student.Snapshot()
	if year := strings.TrimSpace(req.Year); year != "" {
		snapshot.Year = year
	}
	if level := models.Known(req.GradeLevel); level.IsKnown() {
		snapshot.GradeLevel = level
	}
	if strings.TrimSpace(snapshot.Year) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year is required")
	}
	return s.Record(ctx, snapshot, dto.ToUnits(req.Units), GPASourceWrite)
}

// Record computes the GPA of units and persists a transcript for snapshot.
// Callers are expected to have validated the input.
func (s *TranscriptService) Record(ctx context.Context, snapshot models.StudentSnapshot, units models.Units, source string) (*models.Transcript, error) {
	result := academic.CalculateGPA(units)
	s.metrics.IncGPACalculation(source)

	transcript := &models.Transcript{
		Student:          snapshot,
		Units:            units,
		GPA:              result.GPA,
		TotalCreditHours: result.TotalCreditHours,
	}
	if err := s.repo.Create(ctx, transcript); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create transcript")
	}
	s.invalidateHistory(ctx, snapshot.StudentID)
	s.logger.Info("transcript created",
		zap.String("id", transcript.ID),
		zap.String("student_id", snapshot.StudentID),
		zap.String("year", snapshot.Year),
		zap.Float64("gpa", transcript.GPA),
	)
	return transcript, nil
}

// Update replaces the snapshot and units of a transcript and recomputes its GPA.
func (s *TranscriptService) Update(ctx context.Context, id string, req dto.TranscriptRequest) (*models.Transcript, error) {
	dto.NormaliseUnits(req.Units)
	req.Student.Gender = strings.ToUpper(strings.TrimSpace(req.Student.Gender))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transcript payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previousStudentID := existing.Student.StudentID

	units := dto.ToUnits(req.Units)
	result := academic.CalculateGPA(units)
	s.metrics.IncGPACalculation(GPASourceWrite)

	existing.Student = req.Student.Snapshot()
	existing.Units = units
	existing.GPA = result.GPA
	existing.TotalCreditHours = result.TotalCreditHours
	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transcript not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update transcript")
	}
	s.invalidateHistory(ctx, previousStudentID, existing.Student.StudentID)
	return existing, nil
}

// Delete removes a transcript.
func (s *TranscriptService) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "transcript not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete transcript")
	}
	s.invalidateHistory(ctx, existing.Student.StudentID)
	return nil
}

// PreviewGPA computes GPA for unsaved units. Malformed input normalises to zero.
func (s *TranscriptService) PreviewGPA(units []models.Unit) models.GPAResult {
	s.metrics.IncGPACalculation(GPASourcePreview)
	return academic.CalculateGPA(units)
}

func (s *TranscriptService) invalidateHistory(ctx context.Context, studentIDs ...string) {
	keys := make([]string, 0, len(studentIDs))
	seen := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, HistoryCacheKey(id))
	}
	// a stale entry expires with its TTL
	_ = s.cache.Invalidate(ctx, keys...)
}
