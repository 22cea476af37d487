package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-transcript-api/internal/models"
)

const transcriptColumns = "id, student, units, gpa, total_credit_hours, created_at, updated_at"

// TranscriptRepository persists transcripts. The student snapshot and units
// are JSONB documents; lookups by student go through the embedded
// student->>'student_id' field since there is no foreign key.
type TranscriptRepository struct {
	db *sqlx.DB
}

// NewTranscriptRepository constructs a TranscriptRepository.
func NewTranscriptRepository(db *sqlx.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// List returns transcripts matching the filter, newest first.
func (r *TranscriptRepository) List(ctx context.Context, filter models.TranscriptFilter) ([]models.Transcript, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student->>'student_id' = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Year != "" {
		conditions = append(conditions, fmt.Sprintf("student->>'year' = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM transcripts WHERE %s ORDER BY created_at DESC, id ASC LIMIT %d OFFSET %d", transcriptColumns, where, size, offset)
	var transcripts []models.Transcript
	if err := r.db.SelectContext(ctx, &transcripts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transcripts: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM transcripts WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count transcripts: %w", err)
	}
	return transcripts, total, nil
}

// ListByStudentID returns every transcript whose snapshot carries studentID.
// Zero matches is not an error.
func (r *TranscriptRepository) ListByStudentID(ctx context.Context, studentID string) ([]models.Transcript, error) {
	query := fmt.Sprintf("SELECT %s FROM transcripts WHERE student->>'student_id' = $1 ORDER BY created_at DESC", transcriptColumns)
	transcripts := make([]models.Transcript, 0)
	if err := r.db.SelectContext(ctx, &transcripts, query, studentID); err != nil {
		return nil, fmt.Errorf("list transcripts by student: %w", err)
	}
	return transcripts, nil
}

// FindByID fetches a transcript. Missing rows surface as sql.ErrNoRows.
func (r *TranscriptRepository) FindByID(ctx context.Context, id string) (*models.Transcript, error) {
	query := fmt.Sprintf("SELECT %s FROM transcripts WHERE id = $1", transcriptColumns)
	var transcript models.Transcript
	if err := r.db.GetContext(ctx, &transcript, query, id); err != nil {
		return nil, err
	}
	return &transcript, nil
}

// Create inserts a transcript with server-assigned id and timestamps.
func (r *TranscriptRepository) Create(ctx context.Context, transcript *models.Transcript) error {
	if transcript.ID == "" {
		transcript.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	transcript.CreatedAt = now
	transcript.UpdatedAt = now
	const query = `INSERT INTO transcripts (id, student, units, gpa, total_credit_hours, created_at, updated_at)
        VALUES (:id, :student, :units, :gpa, :total_credit_hours, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, transcript); err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	return nil
}

// Update overwrites the snapshot, units and derived totals.
func (r *TranscriptRepository) Update(ctx context.Context, transcript *models.Transcript) error {
	transcript.UpdatedAt = time.Now().UTC()
	const query = `UPDATE transcripts SET student = :student, units = :units, gpa = :gpa, total_credit_hours = :total_credit_hours, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, transcript)
	if err != nil {
		return fmt.Errorf("update transcript: %w", err)
	}
	return requireAffected(result, "update transcript")
}

// Delete removes a transcript.
func (r *TranscriptRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transcripts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	return requireAffected(result, "delete transcript")
}

func requireAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
