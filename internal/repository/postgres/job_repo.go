package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/repository"
)

// Ensure pgJobRepo implements repository.JobRepository.
var _ repository.JobRepository = (*pgJobRepo)(nil)

type pgJobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a PostgreSQL-backed job repository.
func NewJobRepository(pool *pgxpool.Pool) repository.JobRepository {
	return &pgJobRepo{pool: pool}
}

func (r *pgJobRepo) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO ingest_jobs (id, source, source_ref, status, phase, total_rows,
		                         success_count, failure_count, duplicate_count,
		                         error_summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	summary, err := json.Marshal(job.ErrorSummary)
	if err != nil {
		return fmt.Errorf("postgres: marshal error summary: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.pool.Exec(ctx, query,
		job.ID, job.Source, job.SourceRef, job.Status, job.Phase, job.TotalRows,
		job.SuccessCount, job.FailureCount, job.DuplicateCount,
		summary, now, now,
	)
	if err != nil {
		return storeErr("create job", err)
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

func (r *pgJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `
		SELECT id, source, source_ref, status, phase, total_rows,
		       success_count, failure_count, duplicate_count,
		       error_summary, created_at, updated_at
		FROM ingest_jobs
		WHERE id = $1`

	job := &domain.Job{}
	var summary []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Source, &job.SourceRef, &job.Status, &job.Phase, &job.TotalRows,
		&job.SuccessCount, &job.FailureCount, &job.DuplicateCount,
		&summary, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, storeErr("get job by id", err)
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &job.ErrorSummary); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal error summary: %w", err)
		}
	}
	return job, nil
}

func (r *pgJobRepo) UpdateRun(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE ingest_jobs
		SET status = $1, phase = $2, success_count = $3, failure_count = $4,
		    duplicate_count = $5, error_summary = $6, updated_at = $7
		WHERE id = $8`

	summary, err := json.Marshal(job.ErrorSummary)
	if err != nil {
		return fmt.Errorf("postgres: marshal error summary: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query,
		job.Status, job.Phase, job.SuccessCount, job.FailureCount,
		job.DuplicateCount, summary, time.Now().UTC(), job.ID,
	)
	if err != nil {
		return storeErr("update run", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// storeErr wraps a pgx error, tagging connectivity failures as
// domain.ErrStoreUnavailable so the pipeline can tell "store is down" apart
// from a single rejected statement.
func storeErr(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("postgres: %s: %v: %w", op, err, domain.ErrStoreUnavailable)
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}
