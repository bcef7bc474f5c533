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

// RetryJobUsecase re-runs the commit pipeline over the rows that still need
// work: failed outcomes, rebuilt from their stored normalized payloads, and
// validated outcomes whose entities were never persisted because the prior
// pass stopped before commit. Committed and duplicate rows are untouched.
type RetryJobUsecase struct {
	jobs      repository.JobRepository
	rawRows   repository.RawRowRepository
	outcomes  repository.OutcomeRepository
	processor *pipeline.Processor
	publisher events.Publisher
	logger    *zap.Logger
}

// NewRetryJobUsecase creates a new RetryJobUsecase.
func NewRetryJobUsecase(
	jobs repository.JobRepository,
	rawRows repository.RawRowRepository,
	outcomes repository.OutcomeRepository,
	processor *pipeline.Processor,
	publisher events.Publisher,
	logger *zap.Logger,
) *RetryJobUsecase {
	return &RetryJobUsecase{
		jobs:      jobs,
		rawRows:   rawRows,
		outcomes:  outcomes,
		processor: processor,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute retries the unfinished subset of a failed or partial job. The full
// pipeline stage re-runs, not just persistence: a row whose natural key was
// committed elsewhere since the last attempt reclassifies as duplicate.
//
// Validated rows are part of the retried subset. A validate-phase partial job
// may be retried directly, and the pass must then persist the rows validation
// already accepted, or the recomputed status would report successes with no
// entity behind them.
func (uc *RetryJobUsecase) Execute(ctx context.Context, id uuid.UUID, progress domain.ProgressFunc) (*domain.ProcessResult, error) {
	job, err := uc.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrJobNotFound
	}
	if !job.CanRetry() {
		return nil, fmt.Errorf("%w: cannot retry job in status %q", domain.ErrInvalidTransition, job.Status)
	}

	all, err := uc.outcomes.ListByJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	pending := make([]domain.RowOutcome, 0, len(all))
	for _, o := range all {
		if o.State == domain.OutcomeFailed || o.State == domain.OutcomeValidated {
			pending = append(pending, o)
		}
	}

	var rows []domain.RawRow
	if len(pending) > 0 {
		rows = pipeline.RowsFromOutcomes(pending)
	} else {
		// A catastrophic failure records no per-row outcomes; retry falls
		// back to a full commit pass over the original raw rows.
		rows, err = uc.rawRows.ListByJob(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load raw rows: %w", err)
		}
	}

	result, err := uc.processor.Process(ctx, job, rows, pipeline.ModeCommit, progress)
	if err != nil {
		if isCatastrophic(err) {
			uc.logger.Error("Retry pass failed for whole batch", zap.String("job_id", id.String()), zap.Error(err))
			failCatastrophic(ctx, uc.jobs, uc.publisher, job, domain.PhaseCommit, err, uc.logger)
		}
		return nil, fmt.Errorf("retry job: %w", err)
	}

	if err := uc.outcomes.UpsertBatch(ctx, result.Outcomes); err != nil {
		return nil, fmt.Errorf("store outcomes: %w", err)
	}

	// Counts and status recompute over the merged outcome set: the retried
	// subset superseded its prior outcomes, everything else is unchanged.
	merged, err := uc.outcomes.ListByJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	applyOutcomes(job, domain.PhaseCommit, merged)
	if err := uc.jobs.UpdateRun(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	publishStatus(ctx, uc.publisher, job, uc.logger)

	uc.logger.Info("Job retried",
		zap.String("job_id", id.String()),
		zap.String("status", string(job.Status)),
		zap.Int("retried_rows", len(rows)),
		zap.Int("success", job.SuccessCount),
		zap.Int("failed", job.FailureCount),
		zap.Int("duplicate", job.DuplicateCount),
	)

	return resultFor(job, result.Outcomes), nil
}
