package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/flashflowhq/ingest/internal/domain"
)

// JobRepository defines the interface for job persistence operations.
// Implementations must be safe for concurrent use.
type JobRepository interface {
	// Create inserts a new job into the data store.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// UpdateRun stores the status, phase, counters and error summary produced
	// by a completed pipeline pass.
	UpdateRun(ctx context.Context, job *domain.Job) error
}

// RawRowRepository stores the raw rows submitted with a job, exactly as
// received, so validate and commit passes can run any time after submission.
type RawRowRepository interface {
	// InsertBatch stores the submitted rows for a job in input order.
	InsertBatch(ctx context.Context, jobID uuid.UUID, rows []domain.RawRow) error

	// ListByJob returns a job's raw rows ordered by row index.
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.RawRow, error)
}

// OutcomeRepository stores per-row outcomes. Outcomes are owned by their job
// and keyed on (job_id, row_index); writing an outcome for an existing key
// supersedes the prior attempt.
type OutcomeRepository interface {
	// UpsertBatch writes a batch of outcomes, replacing any prior outcome for
	// the same job and row index.
	UpsertBatch(ctx context.Context, outcomes []domain.RowOutcome) error

	// ListByJob returns all outcomes for a job ordered by row index.
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.RowOutcome, error)

	// ListFailedByJob returns the outcomes currently in the failed state,
	// ordered by row index.
	ListFailedByJob(ctx context.Context, jobID uuid.UUID) ([]domain.RowOutcome, error)
}

// VideoStore is the domain store for canonical video records. The ingestion
// pipeline only ever creates entities and resolves natural keys; everything
// else about videos belongs to other parts of the console.
type VideoStore interface {
	// InsertIfAbsent persists the record under its natural key. When an
	// equivalent entity already exists it returns that entity's id and
	// created=false without modifying anything.
	InsertIfAbsent(ctx context.Context, naturalKey string, rec *domain.CanonicalRecord) (id uuid.UUID, created bool, err error)

	// Lookup resolves a natural key to an existing entity id, read-only.
	Lookup(ctx context.Context, naturalKey string) (id uuid.UUID, found bool, err error)
}

// KeyLock serializes commits that target the same natural-key slot so two
// concurrent jobs cannot race to create duplicate entities.
type KeyLock interface {
	// AcquireKey attempts to acquire an exclusive commit lock for a natural
	// key. Returns false when another writer currently holds it.
	AcquireKey(ctx context.Context, key string) (bool, error)

	// ReleaseKey releases the commit lock.
	ReleaseKey(ctx context.Context, key string) error
}
