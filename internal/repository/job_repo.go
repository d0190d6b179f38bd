package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
	"github.com/lib/pq"
)

const jobColumns = `id, status, idempotency_key, file_name, file_path, total_items, created_count,
	skipped_count, errored_count, ignored_count, duration_ms, report, failure,
	created_at, started_at, completed_at`

// jobRepo is the concrete implementation of JobRepository
type jobRepo struct {
	db *database.DB
}

// NewJobRepo creates a new job repository
func NewJobRepo(db *database.DB) JobRepository {
	return &jobRepo{db: db}
}

// Create inserts a new job
func (r *jobRepo) Create(ctx context.Context, job *models.ImportJob) error {
	query := `
		INSERT INTO import_jobs (id, status, idempotency_key, file_name, file_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, nullString(job.IdempotencyKey), job.FileName,
		nullString(job.FilePath), job.CreatedAt,
	)
	return translate(err)
}

// Update updates job status, counters and the stored report
func (r *jobRepo) Update(ctx context.Context, job *models.ImportJob) error {
	var report sql.NullString
	if job.Report != nil {
		b, err := json.Marshal(job.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		report = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		UPDATE import_jobs SET
			status = $1, total_items = $2, created_count = $3, skipped_count = $4,
			errored_count = $5, ignored_count = $6, duration_ms = $7, report = $8,
			failure = $9, started_at = $10, completed_at = $11
		WHERE id = $12
	`
	_, err := r.db.ExecContext(ctx, query,
		job.Status, job.TotalItems, job.CreatedCount, job.SkippedCount,
		job.ErroredCount, job.IgnoredCount, job.DurationMs, report,
		nullString(job.Failure), job.StartedAt, job.CompletedAt, job.ID,
	)
	return err
}

// GetByID retrieves a job by ID
func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	return r.getOne(ctx, "SELECT "+jobColumns+" FROM import_jobs WHERE id = $1", id)
}

// GetByIdempotencyKey retrieves a job by idempotency key
func (r *jobRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error) {
	return r.getOne(ctx, "SELECT "+jobColumns+" FROM import_jobs WHERE idempotency_key = $1", key)
}

func (r *jobRepo) getOne(ctx context.Context, query, arg string) (*models.ImportJob, error) {
	var job models.ImportJob
	var idempotencyKey, filePath, failure sql.NullString
	var report []byte
	var startedAt, completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&job.ID, &job.Status, &idempotencyKey, &job.FileName, &filePath,
		&job.TotalItems, &job.CreatedCount, &job.SkippedCount, &job.ErroredCount,
		&job.IgnoredCount, &job.DurationMs, &report, &failure,
		&job.CreatedAt, &startedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	job.IdempotencyKey = idempotencyKey.String
	job.FilePath = filePath.String
	job.Failure = failure.String
	job.StartedAt = timePtr(startedAt)
	job.CompletedAt = timePtr(completedAt)
	if len(report) > 0 {
		job.Report = &models.ImportReport{}
		if err := json.Unmarshal(report, job.Report); err != nil {
			return nil, fmt.Errorf("decode report for job %s: %w", job.ID, err)
		}
	}

	return &job, nil
}

// AddErrors stores per-record import errors using the COPY protocol
func (r *jobRepo) AddErrors(ctx context.Context, jobID string, errors []models.ImportError) error {
	if len(errors) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("job_errors", "job_id", "seq", "kind", "ref", "message"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range errors {
		if _, err := stmt.ExecContext(ctx, jobID, i+1, string(e.Kind), e.Ref, e.Message); err != nil {
			return err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetErrors retrieves import errors for a job in the order they occurred
func (r *jobRepo) GetErrors(ctx context.Context, jobID string, limit int) ([]models.ImportError, error) {
	query := `SELECT kind, ref, message FROM job_errors WHERE job_id = $1 ORDER BY seq`
	args := []interface{}{jobID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ImportError
	for rows.Next() {
		var e models.ImportError
		if err := rows.Scan(&e.Kind, &e.Ref, &e.Message); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
