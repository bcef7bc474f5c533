package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/events"
	"github.com/flashflowhq/ingest/internal/repository"
)

// DefaultMaxRows caps how many rows one job may carry.
const DefaultMaxRows = 10000

// SubmitJobUsecase handles the business logic for submitting a batch of raw
// rows as a new ingestion job.
type SubmitJobUsecase struct {
	jobs      repository.JobRepository
	rawRows   repository.RawRowRepository
	publisher events.Publisher
	maxRows   int
	logger    *zap.Logger
}

// NewSubmitJobUsecase creates a new SubmitJobUsecase. maxRows falls back to
// DefaultMaxRows when non-positive.
func NewSubmitJobUsecase(
	jobs repository.JobRepository,
	rawRows repository.RawRowRepository,
	publisher events.Publisher,
	maxRows int,
	logger *zap.Logger,
) *SubmitJobUsecase {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &SubmitJobUsecase{
		jobs:      jobs,
		rawRows:   rawRows,
		publisher: publisher,
		maxRows:   maxRows,
		logger:    logger,
	}
}

// Execute validates the submission, creates a pending job and stores its raw
// rows. No normalization or dedup happens yet; that is the validate pass.
func (uc *SubmitJobUsecase) Execute(ctx context.Context, req *domain.SubmitRequest) (*domain.SubmitResponse, error) {
	if !req.Source.IsValid() {
		return nil, domain.ErrInvalidSource
	}
	if len(req.Rows) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if len(req.Rows) > uc.maxRows {
		return nil, domain.ErrBatchTooLarge
	}

	jobID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate UUIDv7: %w", err)
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:        jobID,
		Source:    req.Source,
		SourceRef: req.SourceRef,
		Status:    domain.StatusPending,
		TotalRows: len(req.Rows),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.jobs.Create(ctx, job); err != nil {
		uc.logger.Error("Failed to create job", zap.Error(err), zap.String("job_id", jobID.String()))
		return nil, fmt.Errorf("create job: %w", err)
	}

	rows := make([]domain.RawRow, len(req.Rows))
	for i, fields := range req.Rows {
		rows[i] = domain.RawRow{Index: i, Fields: fields}
	}
	if err := uc.rawRows.InsertBatch(ctx, jobID, rows); err != nil {
		uc.logger.Error("Failed to store raw rows", zap.Error(err), zap.String("job_id", jobID.String()))
		return nil, fmt.Errorf("store raw rows: %w", err)
	}

	publishStatus(ctx, uc.publisher, job, uc.logger)

	uc.logger.Info("Job submitted",
		zap.String("job_id", jobID.String()),
		zap.String("source", string(req.Source)),
		zap.Int("rows", len(rows)),
	)

	return &domain.SubmitResponse{
		JobID:  jobID,
		Status: domain.StatusPending,
		Rows:   len(rows),
	}, nil
}
