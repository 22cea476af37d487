package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-transcript-api/internal/models"
)

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var transcriptRowColumns = []string{"id", "student", "units", "gpa", "total_credit_hours", "created_at", "updated_at"}

func TestTranscriptRepositoryListByStudentID(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTranscriptRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(transcriptRowColumns).
		AddRow("t-1", `{"student_id":"S-001","full_name":"Rina","year":"2023-2024","school_name":"N/A"}`, `[{"code":"MATH","name":"Math","grade":"A","credit_hours":"2"}]`, 4.0, 2.0, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student, units, gpa, total_credit_hours, created_at, updated_at FROM transcripts WHERE student->>'student_id' = $1 ORDER BY created_at DESC")).
		WithArgs("S-001").
		WillReturnRows(rows)

	transcripts, err := repo.ListByStudentID(context.Background(), "S-001")
	require.NoError(t, err)
	require.Len(t, transcripts, 1)
	assert.Equal(t, "S-001", transcripts[0].Student.StudentID)
	assert.False(t, transcripts[0].Student.SchoolName.IsKnown())
	assert.Equal(t, models.CreditHours(2), transcripts[0].Units[0].CreditHours)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranscriptRepositoryListByStudentIDEmpty(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTranscriptRepository(db)

	mock.ExpectQuery("FROM transcripts WHERE student->>'student_id' = \\$1").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(transcriptRowColumns))

	transcripts, err := repo.ListByStudentID(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, transcripts)
	assert.Empty(t, transcripts)
}

func TestTranscriptRepositoryList(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTranscriptRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student, units, gpa, total_credit_hours, created_at, updated_at FROM transcripts WHERE 1=1 AND student->>'student_id' = $1 AND student->>'year' = $2 ORDER BY created_at DESC, id ASC LIMIT 10 OFFSET 10")).
		WithArgs("S-001", "2024").
		WillReturnRows(sqlmock.NewRows(transcriptRowColumns).AddRow("t-1", `{"student_id":"S-001","year":"2024"}`, `[]`, 0.0, 0.0, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM transcripts WHERE 1=1 AND student->>'student_id' = $1 AND student->>'year' = $2")).
		WithArgs("S-001", "2024").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	transcripts, total, err := repo.List(context.Background(), models.TranscriptFilter{StudentID: "S-001", Year: "2024", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, transcripts, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranscriptRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTranscriptRepository(db)

	mock.ExpectQuery("FROM transcripts WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTranscriptRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTranscriptRepository(db)

	mock.ExpectExec("INSERT INTO transcripts").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 3.5, 4.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	transcript := &models.Transcript{
		Student:          models.StudentSnapshot{StudentID: "S-001", FullName: "Rina", Year: "2024"},
		Units:            models.Units{{Code: "BIO", Name: "Biology", Grade: "A", CreditHours: 2}, {Code: "CHEM", Name: "Chemistry", Grade: "B", CreditHours: 2}},
		GPA:              3.5,
		TotalCreditHours: 4,
	}
	require.NoError(t, repo.Create(context.Background(), transcript))
	assert.NotEmpty(t, transcript.ID)
	assert.False(t, transcript.CreatedAt.IsZero())
	assert.Equal(t, transcript.CreatedAt, transcript.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranscriptRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTranscriptRepository(db)

	mock.ExpectExec("UPDATE transcripts SET student").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Transcript{ID: "missing"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranscriptRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTranscriptRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transcripts WHERE id = $1")).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transcripts WHERE id = $1")).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "t-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "t-1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
