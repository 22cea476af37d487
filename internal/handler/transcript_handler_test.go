package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-transcript-api/internal/dto"
	"github.com/noah-isme/sma-transcript-api/internal/models"
	appErrors "github.com/noah-isme/sma-transcript-api/pkg/errors"
)

type transcriptServiceMock struct {
	filter     models.TranscriptFilter
	transcript *models.Transcript
	err        error
	created    dto.TranscriptRequest
	preview    []models.Unit
}

func (m *transcriptServiceMock) List(ctx context.Context, filter models.TranscriptFilter) ([]models.Transcript, *models.Pagination, error) {
	m.filter = filter
	return []models.Transcript{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, m.err
}

func (m *transcriptServiceMock) Get(ctx context.Context, id string) (*models.Transcript, error) {
	return m.transcript, m.err
}

func (m *transcriptServiceMock) Create(ctx context.Context, req dto.TranscriptRequest) (*models.Transcript, error) {
	m.created = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Transcript{ID: "t-1", GPA: 3.43, TotalCreditHours: 7}, nil
}

func (m *transcriptServiceMock) Update(ctx context.Context, id string, req dto.TranscriptRequest) (*models.Transcript, error) {
	return &models.Transcript{ID: id}, m.err
}

func (m *transcriptServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

func (m *transcriptServiceMock) PreviewGPA(units []models.Unit) models.GPAResult {
	m.preview = units
	return models.GPAResult{GPA: 4, TotalCreditHours: 3}
}

type importerMock struct {
	maxSize int64
	data    []byte
	result  *dto.ImportResult
	err     error
}

func (m *importerMock) ImportTranscripts(ctx context.Context, data []byte) (*dto.ImportResult, error) {
	m.data = data
	return m.result, m.err
}

func (m *importerMock) MaxSize() int64 { return m.maxSize }

type exporterMock struct {
	format models.ExportFormat
	filter models.TranscriptFilter
	err    error
}

func (m *exporterMock) ExportTranscript(ctx context.Context, id string, format models.ExportFormat) (*dto.ExportFile, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ExportFile{Filename: "transcript_" + id + "." + string(format), ContentType: "application/pdf", Data: []byte("%PDF")}, nil
}

func (m *exporterMock) ExportTranscriptList(ctx context.Context, filter models.TranscriptFilter, format models.ExportFormat) (*dto.ExportFile, error) {
	m.filter = filter
	m.format = format
	return &dto.ExportFile{Filename: "transcripts.csv", ContentType: "text/csv", Data: []byte("id\n")}, m.err
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestTranscriptHandlerListFilter(t *testing.T) {
	svc := &transcriptServiceMock{}
	h := NewTranscriptHandler(svc, nil, nil)

	c, w := newGinContext(http.MethodGet, "/transcripts?studentId=NIS-1&year=2023-2024&limit=10", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TranscriptFilter{StudentID: "NIS-1", Year: "2023-2024", Page: 1, PageSize: 10}, svc.filter)
}

func TestTranscriptHandlerCreateReturnsDerivedGPA(t *testing.T) {
	svc := &transcriptServiceMock{}
	h := NewTranscriptHandler(svc, nil, nil)

	body := []byte(`{"student":{"full_name":"Ayu","student_id":"NIS-1","year":"2024"},"units":[{"code":"MTH","name":"Math","grade":"A","credit_hours":3}],"gpa":1.0}`)
	c, w := newGinContext(http.MethodPost, "/transcripts", body)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "NIS-1", svc.created.Student.StudentID)
	assert.Contains(t, w.Body.String(), `"gpa":3.43`)
}

func TestTranscriptHandlerGetNotFound(t *testing.T) {
	h := NewTranscriptHandler(&transcriptServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "transcript not found")}, nil, nil)

	c, w := newGinContext(http.MethodGet, "/transcripts/t-x", nil)
	c.Params = gin.Params{{Key: "id", Value: "t-x"}}
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTranscriptHandlerPreviewIsLenient(t *testing.T) {
	svc := &transcriptServiceMock{}
	h := NewTranscriptHandler(svc, nil, nil)

	body := []byte(`{"units":[{"code":"MTH","grade":"A","credit_hours":"3"},{"code":"ART","grade":"??","credit_hours":"many"}]}`)
	c, w := newGinContext(http.MethodPost, "/gpa/preview", body)
	h.Preview(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.preview, 2)
	assert.Equal(t, models.CreditHours(3), svc.preview[0].CreditHours)
	assert.Equal(t, models.CreditHours(0), svc.preview[1].CreditHours)
	assert.Contains(t, w.Body.String(), `"total_credit_hours":3`)
}

func TestTranscriptHandlerPreviewAcceptsNumericGrade(t *testing.T) {
	svc := &transcriptServiceMock{}
	h := NewTranscriptHandler(svc, nil, nil)

	c, w := newGinContext(http.MethodPost, "/gpa/preview", []byte(`{"units":[{"code":"MTH","grade":4,"credit_hours":3}]}`))
	h.Preview(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.preview, 1)
	assert.Equal(t, "4", svc.preview[0].Grade)
}

func TestTranscriptHandlerImport(t *testing.T) {
	imp := &importerMock{maxSize: 1024, result: &dto.ImportResult{Created: 1, TranscriptIDs: []string{"t-1"}}}
	h := NewTranscriptHandler(nil, imp, nil)

	body, contentType := multipartUpload(t, "file", "grades.xlsx", []byte("workbook"))
	c, w := newGinContext(http.MethodPost, "/transcripts/import", body.Bytes())
	c.Request.Header.Set("Content-Type", contentType)
	h.Import(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("workbook"), imp.data)
	assert.Contains(t, w.Body.String(), `"created":1`)
}

func TestTranscriptHandlerImportTooLarge(t *testing.T) {
	imp := &importerMock{maxSize: 4}
	h := NewTranscriptHandler(nil, imp, nil)

	body, contentType := multipartUpload(t, "file", "grades.xlsx", []byte("too large workbook"))
	c, w := newGinContext(http.MethodPost, "/transcripts/import", body.Bytes())
	c.Request.Header.Set("Content-Type", contentType)
	h.Import(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Nil(t, imp.data)
}

func TestTranscriptHandlerImportRequiresFile(t *testing.T) {
	h := NewTranscriptHandler(nil, &importerMock{}, nil)

	body, contentType := multipartUpload(t, "other", "grades.xlsx", []byte("x"))
	c, w := newGinContext(http.MethodPost, "/transcripts/import", body.Bytes())
	c.Request.Header.Set("Content-Type", contentType)
	h.Import(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranscriptHandlerExport(t *testing.T) {
	exp := &exporterMock{}
	h := NewTranscriptHandler(nil, nil, exp)

	c, w := newGinContext(http.MethodGet, "/transcripts/t-1/export", nil)
	c.Params = gin.Params{{Key: "id", Value: "t-1"}}
	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ExportFormatPDF, exp.format)
	assert.Equal(t, `attachment; filename="transcript_t-1.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", w.Body.String())
}

func TestTranscriptHandlerExportRejectsFormat(t *testing.T) {
	exp := &exporterMock{}
	h := NewTranscriptHandler(nil, nil, exp)

	c, w := newGinContext(http.MethodGet, "/transcripts/t-1/export?format=docx", nil)
	c.Params = gin.Params{{Key: "id", Value: "t-1"}}
	h.Export(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, exp.format)
}

func TestTranscriptHandlerExportList(t *testing.T) {
	exp := &exporterMock{}
	h := NewTranscriptHandler(nil, nil, exp)

	c, w := newGinContext(http.MethodGet, "/transcripts/export?format=CSV&year=2024", nil)
	h.ExportList(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ExportFormatCSV, exp.format)
	assert.Equal(t, "2024", exp.filter.Year)
	assert.Equal(t, 100, exp.filter.PageSize)
}
