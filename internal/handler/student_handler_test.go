package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-transcript-api/internal/dto"
	"github.com/noah-isme/sma-transcript-api/internal/models"
	appErrors "github.com/noah-isme/sma-transcript-api/pkg/errors"
)

type studentServiceMock struct {
	filter    models.StudentFilter
	students  []models.Student
	student   *models.Student
	err       error
	deletedID string
}

func (m *studentServiceMock) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	m.filter = filter
	return m.students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(m.students)}, m.err
}

func (m *studentServiceMock) Get(ctx context.Context, id string) (*models.Student, error) {
	return m.student, m.err
}

func (m *studentServiceMock) Create(ctx context.Context, req dto.StudentRequest) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Student{ID: "s-1", StudentID: req.StudentID, FullName: req.FullName}, nil
}

func (m *studentServiceMock) Update(ctx context.Context, id string, req dto.StudentRequest) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Student{ID: id, StudentID: req.StudentID, FullName: req.FullName}, nil
}

func (m *studentServiceMock) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return m.err
}

type studentTranscriptMock struct {
	id  string
	req dto.StudentTranscriptRequest
}

func (m *studentTranscriptMock) CreateForStudent(ctx context.Context, id string, req dto.StudentTranscriptRequest) (*models.Transcript, error) {
	m.id = id
	m.req = req
	return &models.Transcript{ID: "t-1", GPA: 4}, nil
}

func TestStudentHandlerListParsesQuery(t *testing.T) {
	svc := &studentServiceMock{students: []models.Student{{ID: "s-1"}}}
	h := NewStudentHandler(svc, nil)

	c, w := newGinContext(http.MethodGet, "/students?search=%20ayu%20&page=2&limit=5&sort=full_name&order=asc", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StudentFilter{Search: "ayu", Page: 2, PageSize: 5, SortBy: "full_name", SortOrder: "asc"}, svc.filter)
	env := decodeEnvelope(t, w)
	assert.Equal(t, 2, env.Pagination["page"])
}

func TestStudentHandlerListFallsBackOnBadPaging(t *testing.T) {
	svc := &studentServiceMock{}
	h := NewStudentHandler(svc, nil)

	c, _ := newGinContext(http.MethodGet, "/students?page=abc&limit=-3", nil)
	h.List(c)

	assert.Equal(t, 1, svc.filter.Page)
	assert.Equal(t, 20, svc.filter.PageSize)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	h := NewStudentHandler(&studentServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")}, nil)

	c, w := newGinContext(http.MethodGet, "/students/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "student not found", env.Error.Message)
}

func TestStudentHandlerCreate(t *testing.T) {
	h := NewStudentHandler(&studentServiceMock{}, nil)

	body := mustJSON(t, dto.StudentRequest{StudentID: "NIS-0001", FullName: "Ayu Lestari"})
	c, w := newGinContext(http.MethodPost, "/students", body)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "NIS-0001")
}

func TestStudentHandlerCreateInvalidJSON(t *testing.T) {
	h := NewStudentHandler(&studentServiceMock{}, nil)

	c, w := newGinContext(http.MethodPost, "/students", []byte("{"))
	h.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid payload", env.Error.Message)
}

func TestStudentHandlerCreateConflict(t *testing.T) {
	h := NewStudentHandler(&studentServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "student ID already exists")}, nil)

	c, w := newGinContext(http.MethodPost, "/students", mustJSON(t, dto.StudentRequest{StudentID: "NIS-0001"}))
	h.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStudentHandlerDelete(t *testing.T) {
	svc := &studentServiceMock{}
	h := NewStudentHandler(svc, nil)

	c, w := newGinContext(http.MethodDelete, "/students/s-9", nil)
	c.Params = gin.Params{{Key: "id", Value: "s-9"}}
	h.Delete(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Empty(t, w.Body.Bytes())
	assert.Equal(t, "s-9", svc.deletedID)
}

func TestStudentHandlerCreateTranscript(t *testing.T) {
	transcripts := &studentTranscriptMock{}
	h := NewStudentHandler(&studentServiceMock{}, transcripts)

	body := mustJSON(t, dto.StudentTranscriptRequest{
		Year:  "2024-2025",
		Units: []dto.UnitRequest{{Code: "MTH", Name: "Math", Grade: "A", CreditHours: 3}},
	})
	c, w := newGinContext(http.MethodPost, "/students/s-1/transcripts", body)
	c.Params = gin.Params{{Key: "id", Value: "s-1"}}
	h.CreateTranscript(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s-1", transcripts.id)
	assert.Equal(t, "2024-2025", transcripts.req.Year)
	require.Len(t, transcripts.req.Units, 1)
}
