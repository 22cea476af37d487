package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-transcript-api/internal/dto"
	"github.com/noah-isme/sma-transcript-api/internal/models"
	"github.com/noah-isme/sma-transcript-api/internal/service"
	"github.com/noah-isme/sma-transcript-api/pkg/response"
)

type exportJobService interface {
	CreateHistoryJob(ctx context.Context, studentID string, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error)
	CreateTranscriptJob(ctx context.Context, transcriptID string, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, id string) (*dto.ExportStatusResponse, error)
	ListForStudent(ctx context.Context, studentID string, limit int) ([]dto.ExportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler manages asynchronous document exports.
type ExportHandler struct {
	jobs exportJobService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(jobs exportJobService) *ExportHandler {
	return &ExportHandler{jobs: jobs}
}

// bindExportRequest accepts an empty body and falls back to ?format=.
func bindExportRequest(c *gin.Context) (dto.ExportRequest, error) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, invalidPayload(err)
	}
	if req.Format == "" {
		req.Format = models.ExportFormat(c.Query("format"))
	}
	return req, nil
}

// CreateHistoryExport godoc
// @Summary Queue academic record export
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "External student ID"
// @Param payload body dto.ExportRequest false "Export options"
// @Success 202 {object} response.Envelope
// @Router /students/{id}/history/exports [post]
func (h *ExportHandler) CreateHistoryExport(c *gin.Context) {
	req, err := bindExportRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.jobs.CreateHistoryJob(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ListHistoryExports godoc
// @Summary Recent exports of a student
// @Tags Exports
// @Produce json
// @Param id path string true "External student ID"
// @Param limit query int false "Maximum jobs returned"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/history/exports [get]
func (h *ExportHandler) ListHistoryExports(c *gin.Context) {
	jobs, err := h.jobs.ListForStudent(c.Request.Context(), c.Param("id"), queryInt(c, "limit", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// CreateTranscriptExport godoc
// @Summary Queue transcript export
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Transcript ID"
// @Param payload body dto.ExportRequest false "Export options"
// @Success 202 {object} response.Envelope
// @Router /transcripts/{id}/exports [post]
func (h *ExportHandler) CreateTranscriptExport(c *gin.Context) {
	req, err := bindExportRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.jobs.CreateTranscriptJob(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	status, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download finished export
// @Tags Exports
// @Produce application/pdf
// @Produce text/csv
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	contentType := "text/csv"
	if download.Format == models.ExportFormatPDF {
		contentType = "application/pdf"
	}
	var size int64 = -1
	if info, statErr := download.File.Stat(); statErr == nil {
		size = info.Size()
	}
	c.DataFromReader(http.StatusOK, size, contentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
		"Cache-Control":       "no-store",
	})
}
