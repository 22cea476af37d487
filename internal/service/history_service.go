package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-transcript-api/internal/academic"
	"github.com/noah-isme/sma-transcript-api/internal/models"
	appErrors "github.com/noah-isme/sma-transcript-api/pkg/errors"
)

const historyCachePrefix = "academic_history:"

// HistoryCacheKey is the cache key of the academic history of studentID.
func HistoryCacheKey(studentID string) string {
	return historyCachePrefix + strings.TrimSpace(studentID)
}

type transcriptsByStudent interface {
	ListByStudentID(ctx context.Context, studentID string) ([]models.Transcript, error)
}

// HistoryService assembles academic histories, optionally through the cache.
type HistoryService struct {
	repo    transcriptsByStudent
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewHistoryService constructs the history service.
func NewHistoryService(repo transcriptsByStudent, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// Get returns the academic history of a student. A student without
// transcripts yields an empty history, not an error.
func (s *HistoryService) Get(ctx context.Context, studentID string) (*models.AcademicHistory, error) {
	history, _, err := s.Lookup(ctx, studentID)
	return history, err
}

// Lookup is Get that also reports whether the history came from the cache.
func (s *HistoryService) Lookup(ctx context.Context, studentID string) (*models.AcademicHistory, bool, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}

	key := HistoryCacheKey(studentID)
	var cached models.AcademicHistory
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		s.metrics.IncHistoryBuild(HistoryOutcomeCached)
		return &cached, true, nil
	}

	start := time.Now()
	transcripts, err := s.repo.ListByStudentID(ctx, studentID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transcripts")
	}
	s.metrics.ObserveDBQuery("transcripts_by_student", time.Since(start))
	history := academic.BuildHistory(studentID, transcripts)
	s.metrics.IncHistoryBuild(HistoryOutcomeBuilt)

	if err := s.cache.Set(ctx, key, history, 0); err != nil {
		s.logger.Debug("history not cached", zap.String("student_id", studentID), zap.Error(err))
	}
	return history, false, nil
}
