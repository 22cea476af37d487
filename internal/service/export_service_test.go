package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-transcript-api/internal/models"
	appErrors "github.com/noah-isme/sma-transcript-api/pkg/errors"
	"github.com/noah-isme/sma-transcript-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *transcriptRepoStub) {
	t.Helper()
	repo := historyFixture()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	transcripts := NewTranscriptService(repo, nil, nil, nil, nil, zap.NewNop())
	histories := NewHistoryService(repo, nil, nil, zap.NewNop())
	svc := NewExportService(histories, transcripts, store, signer, ExportConfig{
		APIPrefix:            "/api/v1/",
		ResultTTL:            time.Hour,
		DefaultPrincipalName: "Drs. Default",
	}, zap.NewNop(), nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc, repo
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportServiceHistoryCSV(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	file, err := svc.ExportHistory(context.Background(), "S-1", models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "academic_history_S-1.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	records := readCSV(t, file.Data)
	require.Len(t, records, 3)
	assert.Equal(t, "2024-2025", records[1][0])
	// carried from the earlier year
	assert.Equal(t, "SMA 1", records[1][2])
	assert.Equal(t, "2023-2024", records[2][0])
}

func TestExportServiceHistoryPDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	file, err := svc.ExportHistory(context.Background(), "S-1", models.ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportServiceHistoryErrors(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	_, err := svc.ExportHistory(context.Background(), "S-none", models.ExportFormatPDF)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "no academic history", appErr.Message)

	_, err = svc.ExportHistory(context.Background(), "S-1", models.ExportFormat("docx"))
	assert.Equal(t, appErrors.ErrUnsupportedFormat.Code, appErrors.FromError(err).Code)
}

func TestExportServiceTranscript(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	file, err := svc.ExportTranscript(context.Background(), "t-2024", models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "transcript_S-1_2024-2025.csv", file.Filename)
	records := readCSV(t, file.Data)
	require.Len(t, records, 2)
	assert.Equal(t, "P", records[1][3])
	assert.Equal(t, "3.00", records[1][8])

	_, err = svc.ExportTranscript(context.Background(), "missing", models.ExportFormatPDF)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceTranscriptList(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	file, err := svc.ExportTranscriptList(context.Background(), models.TranscriptFilter{StudentID: "S-1"}, models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "transcripts_20250102_030405.csv", file.Filename)
	records := readCSV(t, file.Data)
	require.Len(t, records, 3)
	assert.Equal(t, transcriptListHeaders, records[0])

	pdf, err := svc.ExportTranscriptList(context.Background(), models.TranscriptFilter{}, models.ExportFormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf.Data, []byte("%PDF")))
}

func TestExportServiceBuildRecordUsesFallbackPrincipal(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	history, err := svc.histories.Get(context.Background(), "S-1")
	require.NoError(t, err)

	doc := svc.buildRecord(history, "Title")
	assert.Equal(t, "SMA 1", doc.Institution)
	assert.Equal(t, "Drs. Default", doc.PrincipalName)
	require.Len(t, doc.Years, 2)
	assert.Equal(t, "3", doc.Years[0].Credits)
	assert.Equal(t, "3.00", doc.Years[0].GPA)
	assert.Equal(t, []string{"3.50", "6", "2"}, []string{doc.Summary[0].Value, doc.Summary[1].Value, doc.Summary[2].Value})
}

func TestExportServiceGenerateStoresSignedFile(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ExportJob{
		ID:     "job-1",
		Type:   models.ExportTypeAcademicHistory,
		Params: models.ExportJobParams{StudentID: "S-1", Format: models.ExportFormatCSV},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/download/"))
	assert.True(t, strings.HasSuffix(result.URL, result.Token))

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, file.Close())
	require.NoError(t, err)
	assert.Contains(t, string(data), "2023-2024")

	require.NoError(t, svc.Delete(relPath))
	_, err = svc.Generate(context.Background(), &models.ExportJob{ID: "job-2", Type: "unknown"})
	assert.Error(t, err)
}
