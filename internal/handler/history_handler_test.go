package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-transcript-api/internal/dto"
	"github.com/noah-isme/sma-transcript-api/internal/middleware"
	"github.com/noah-isme/sma-transcript-api/internal/models"
	appErrors "github.com/noah-isme/sma-transcript-api/pkg/errors"
)

type historyLookupMock struct {
	history *models.AcademicHistory
	cached  bool
	err     error
	id      string
}

func (m *historyLookupMock) Lookup(ctx context.Context, studentID string) (*models.AcademicHistory, bool, error) {
	m.id = studentID
	return m.history, m.cached, m.err
}

type historyExporterMock struct {
	err error
}

func (m *historyExporterMock) ExportHistory(ctx context.Context, studentID string, format models.ExportFormat) (*dto.ExportFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ExportFile{Filename: "academic_history_" + studentID + ".csv", ContentType: "text/csv", Data: []byte("Year\n")}, nil
}

func TestHistoryHandlerGetReportsCacheHit(t *testing.T) {
	lookup := &historyLookupMock{
		history: &models.AcademicHistory{
			StudentID: "NIS-1",
			Years:     []string{"2023-2024"},
			Summary:   models.HistorySummary{CumulativeGPA: 3.5, TotalCredits: 6, YearsCompleted: 1},
		},
		cached: true,
	}
	h := NewHistoryHandler(lookup, nil)

	c, w := newGinContext(http.MethodGet, "/students/NIS-1/history", nil)
	c.Params = gin.Params{{Key: "id", Value: "NIS-1"}}
	middleware.WithResponseMeta()(c)
	h.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "NIS-1", lookup.id)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, string(env.Data), `"cumulative_gpa":3.5`)
}

func TestHistoryHandlerGetEmptyHistoryIsOK(t *testing.T) {
	lookup := &historyLookupMock{history: &models.AcademicHistory{
		StudentID:   "NIS-2",
		Transcripts: map[string][]models.Transcript{},
		Years:       []string{},
		Records:     []models.AcademicYearRecord{},
	}}
	h := NewHistoryHandler(lookup, nil)

	c, w := newGinContext(http.MethodGet, "/students/NIS-2/history", nil)
	c.Params = gin.Params{{Key: "id", Value: "NIS-2"}}
	h.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, false, env.Meta["cache_hit"])
	assert.Contains(t, string(env.Data), `"years":[]`)
}

func TestHistoryHandlerExportEmptyHistory(t *testing.T) {
	h := NewHistoryHandler(nil, &historyExporterMock{err: appErrors.Clone(appErrors.ErrNotFound, "no academic history")})

	c, w := newGinContext(http.MethodGet, "/students/NIS-3/history/export?format=pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "NIS-3"}}
	h.Export(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "no academic history", env.Error.Message)
}

func TestHistoryHandlerExportCSV(t *testing.T) {
	h := NewHistoryHandler(nil, &historyExporterMock{})

	c, w := newGinContext(http.MethodGet, "/students/NIS-1/history/export?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "NIS-1"}}
	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="academic_history_NIS-1.csv"`, w.Header().Get("Content-Disposition"))
}
