package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-transcript-api/internal/dto"
	"github.com/noah-isme/sma-transcript-api/internal/models"
	appErrors "github.com/noah-isme/sma-transcript-api/pkg/errors"
	"github.com/noah-isme/sma-transcript-api/pkg/response"
)

type transcriptService interface {
	List(ctx context.Context, filter models.TranscriptFilter) ([]models.Transcript, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Transcript, error)
	Create(ctx context.Context, req dto.TranscriptRequest) (*models.Transcript, error)
	Update(ctx context.Context, id string, req dto.TranscriptRequest) (*models.Transcript, error)
	Delete(ctx context.Context, id string) error
	PreviewGPA(units []models.Unit) models.GPAResult
}

type transcriptImporter interface {
	ImportTranscripts(ctx context.Context, data []byte) (*dto.ImportResult, error)
	MaxSize() int64
}

type transcriptExporter interface {
	ExportTranscript(ctx context.Context, id string, format models.ExportFormat) (*dto.ExportFile, error)
	ExportTranscriptList(ctx context.Context, filter models.TranscriptFilter, format models.ExportFormat) (*dto.ExportFile, error)
}

// TranscriptHandler exposes transcript endpoints.
type TranscriptHandler struct {
	transcripts transcriptService
	importer    transcriptImporter
	exporter    transcriptExporter
}

// NewTranscriptHandler constructs TranscriptHandler.
func NewTranscriptHandler(transcripts transcriptService, importer transcriptImporter, exporter transcriptExporter) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts, importer: importer, exporter: exporter}
}

func transcriptFilter(c *gin.Context) models.TranscriptFilter {
	return models.TranscriptFilter{
		StudentID: strings.TrimSpace(c.Query("studentId")),
		Year:      strings.TrimSpace(c.Query("year")),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "limit", 20),
	}
}

// List godoc
// @Summary List transcripts
// @Tags Transcripts
// @Produce json
// @Param studentId query string false "Filter by external student ID"
// @Param year query string false "Filter by school year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /transcripts [get]
func (h *TranscriptHandler) List(c *gin.Context) {
	transcripts, pagination, err := h.transcripts.List(c.Request.Context(), transcriptFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcripts, pagination)
}

// Get godoc
// @Summary Get transcript
// @Tags Transcripts
// @Produce json
// @Param id path string true "Transcript ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /transcripts/{id} [get]
func (h *TranscriptHandler) Get(c *gin.Context) {
	transcript, err := h.transcripts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript, nil)
}

// Create godoc
// @Summary Create transcript
// @Description GPA and total credit hours are computed from the units.
// @Tags Transcripts
// @Accept json
// @Produce json
// @Param payload body dto.TranscriptRequest true "Transcript payload"
// @Success 201 {object} response.Envelope
// @Router /transcripts [post]
func (h *TranscriptHandler) Create(c *gin.Context) {
	var req dto.TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	transcript, err := h.transcripts.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, transcript)
}

// Update godoc
// @Summary Update transcript
// @Tags Transcripts
// @Accept json
// @Produce json
// @Param id path string true "Transcript ID"
// @Param payload body dto.TranscriptRequest true "Transcript payload"
// @Success 200 {object} response.Envelope
// @Router /transcripts/{id} [put]
func (h *TranscriptHandler) Update(c *gin.Context) {
	var req dto.TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	transcript, err := h.transcripts.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transcript, nil)
}

// Delete godoc
// @Summary Delete transcript
// @Tags Transcripts
// @Param id path string true "Transcript ID"
// @Success 204 {string} string ""
// @Router /transcripts/{id} [delete]
func (h *TranscriptHandler) Delete(c *gin.Context) {
	if err := h.transcripts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Preview godoc
// @Summary Preview GPA
// @Description Computes GPA and credit totals without persisting. Unknown grades count as zero points.
// @Tags GPA
// @Accept json
// @Produce json
// @Param payload body dto.GPAPreviewRequest true "Units"
// @Success 200 {object} response.Envelope
// @Router /gpa/preview [post]
func (h *TranscriptHandler) Preview(c *gin.Context) {
	var req dto.GPAPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	response.JSON(c, http.StatusOK, h.transcripts.PreviewGPA(req.Units), nil)
}

// Import godoc
// @Summary Import transcripts from spreadsheet
// @Tags Transcripts
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx workbook"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /transcripts/import [post]
func (h *TranscriptHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	maxSize := h.importer.MaxSize()
	if maxSize > 0 && header.Size > maxSize {
		response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, "file exceeds upload limit"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unable to read upload"))
		return
	}
	defer file.Close()

	var reader io.Reader = file
	if maxSize > 0 {
		reader = io.LimitReader(file, maxSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unable to read upload"))
		return
	}

	result, err := h.importer.ImportTranscripts(c.Request.Context(), data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Download transcript document
// @Tags Transcripts
// @Produce application/pdf
// @Produce text/csv
// @Param id path string true "Transcript ID"
// @Param format query string false "pdf or csv"
// @Success 200 {file} file
// @Router /transcripts/{id}/export [get]
func (h *TranscriptHandler) Export(c *gin.Context) {
	format, err := exportFormat(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.ExportTranscript(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// ExportList godoc
// @Summary Download transcript register
// @Tags Transcripts
// @Produce application/pdf
// @Produce text/csv
// @Param studentId query string false "Filter by external student ID"
// @Param year query string false "Filter by school year"
// @Param format query string false "pdf or csv"
// @Success 200 {file} file
// @Router /transcripts/export [get]
func (h *TranscriptHandler) ExportList(c *gin.Context) {
	format, err := exportFormat(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := transcriptFilter(c)
	filter.PageSize = queryInt(c, "limit", 100)
	file, err := h.exporter.ExportTranscriptList(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
