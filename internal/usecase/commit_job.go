package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/events"
	"github.com/flashflowhq/ingest/internal/pipeline"
	"github.com/flashflowhq/ingest/internal/repository"
)

// CommitJobUsecase runs a commit pass over a validated job: the full pipeline
// re-runs (normalization is pure, dedup targets may have moved since the
// validate pass) and non-duplicate, non-failed rows are persisted.
type CommitJobUsecase struct {
	jobs      repository.JobRepository
	rawRows   repository.RawRowRepository
	outcomes  repository.OutcomeRepository
	processor *pipeline.Processor
	publisher events.Publisher
	logger    *zap.Logger
}

// NewCommitJobUsecase creates a new CommitJobUsecase.
func NewCommitJobUsecase(
	jobs repository.JobRepository,
	rawRows repository.RawRowRepository,
	outcomes repository.OutcomeRepository,
	processor *pipeline.Processor,
	publisher events.Publisher,
	logger *zap.Logger,
) *CommitJobUsecase {
	return &CommitJobUsecase{
		jobs:      jobs,
		rawRows:   rawRows,
		outcomes:  outcomes,
		processor: processor,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute commits the job. Permitted from a clean validation and from a
// validate-phase partial job, where it persists the valid rows and leaves the
// failed ones for export or retry.
func (uc *CommitJobUsecase) Execute(ctx context.Context, id uuid.UUID, progress domain.ProgressFunc) (*domain.ProcessResult, error) {
	job, err := uc.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrJobNotFound
	}
	if !job.CanCommit() {
		return nil, fmt.Errorf("%w: cannot commit job in status %q", domain.ErrInvalidTransition, job.Status)
	}

	rows, err := uc.rawRows.ListByJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load raw rows: %w", err)
	}

	result, err := uc.processor.Process(ctx, job, rows, pipeline.ModeCommit, progress)
	if err != nil {
		if isCatastrophic(err) {
			uc.logger.Error("Commit pass failed for whole batch", zap.String("job_id", id.String()), zap.Error(err))
			failCatastrophic(ctx, uc.jobs, uc.publisher, job, domain.PhaseCommit, err, uc.logger)
		}
		return nil, fmt.Errorf("commit job: %w", err)
	}

	if err := uc.outcomes.UpsertBatch(ctx, result.Outcomes); err != nil {
		return nil, fmt.Errorf("store outcomes: %w", err)
	}

	applyOutcomes(job, domain.PhaseCommit, result.Outcomes)
	if err := uc.jobs.UpdateRun(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	publishStatus(ctx, uc.publisher, job, uc.logger)

	uc.logger.Info("Job committed",
		zap.String("job_id", id.String()),
		zap.String("status", string(job.Status)),
		zap.Int("success", job.SuccessCount),
		zap.Int("failed", job.FailureCount),
		zap.Int("duplicate", job.DuplicateCount),
	)

	return resultFor(job, result.Outcomes), nil
}
