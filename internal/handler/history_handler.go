package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-transcript-api/internal/dto"
	"github.com/noah-isme/sma-transcript-api/internal/middleware"
	"github.com/noah-isme/sma-transcript-api/internal/models"
	"github.com/noah-isme/sma-transcript-api/pkg/response"
)

type historyLookup interface {
	Lookup(ctx context.Context, studentID string) (*models.AcademicHistory, bool, error)
}

type historyExporter interface {
	ExportHistory(ctx context.Context, studentID string, format models.ExportFormat) (*dto.ExportFile, error)
}

// HistoryHandler serves the aggregated academic history of a student.
type HistoryHandler struct {
	histories historyLookup
	exporter  historyExporter
}

// NewHistoryHandler constructs HistoryHandler.
func NewHistoryHandler(histories historyLookup, exporter historyExporter) *HistoryHandler {
	return &HistoryHandler{histories: histories, exporter: exporter}
}

// Get godoc
// @Summary Academic history
// @Description Transcripts grouped by school year with carried school metadata and cumulative GPA. Students without transcripts get an empty history.
// @Tags History
// @Produce json
// @Param id path string true "External student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/history [get]
func (h *HistoryHandler) Get(c *gin.Context) {
	history, cached, err := h.histories.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, history, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download academic record
// @Tags History
// @Produce application/pdf
// @Produce text/csv
// @Param id path string true "External student ID"
// @Param format query string false "pdf or csv"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/history/export [get]
func (h *HistoryHandler) Export(c *gin.Context) {
	format, err := exportFormat(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.ExportHistory(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
