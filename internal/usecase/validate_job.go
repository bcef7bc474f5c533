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

// ValidateJobUsecase runs a validate-only pass: every row goes through the
// normalizer and deduplicator, nothing is persisted to the video store.
type ValidateJobUsecase struct {
	jobs      repository.JobRepository
	rawRows   repository.RawRowRepository
	outcomes  repository.OutcomeRepository
	processor *pipeline.Processor
	publisher events.Publisher
	logger    *zap.Logger
}

// NewValidateJobUsecase creates a new ValidateJobUsecase.
func NewValidateJobUsecase(
	jobs repository.JobRepository,
	rawRows repository.RawRowRepository,
	outcomes repository.OutcomeRepository,
	processor *pipeline.Processor,
	publisher events.Publisher,
	logger *zap.Logger,
) *ValidateJobUsecase {
	return &ValidateJobUsecase{
		jobs:      jobs,
		rawRows:   rawRows,
		outcomes:  outcomes,
		processor: processor,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute validates the job's rows. Validation is pure, and outcomes replace
// any prior attempt per row, so re-running it on an uncommitted job yields
// the same counts without accumulating outcomes.
func (uc *ValidateJobUsecase) Execute(ctx context.Context, id uuid.UUID, progress domain.ProgressFunc) (*domain.ProcessResult, error) {
	job, err := uc.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrJobNotFound
	}
	if !job.CanValidate() {
		return nil, fmt.Errorf("%w: cannot validate job in status %q", domain.ErrInvalidTransition, job.Status)
	}

	rows, err := uc.rawRows.ListByJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load raw rows: %w", err)
	}

	result, err := uc.processor.Process(ctx, job, rows, pipeline.ModeValidate, progress)
	if err != nil {
		if isCatastrophic(err) {
			uc.logger.Error("Validation pass failed for whole batch", zap.String("job_id", id.String()), zap.Error(err))
			failCatastrophic(ctx, uc.jobs, uc.publisher, job, domain.PhaseValidate, err, uc.logger)
		}
		return nil, fmt.Errorf("validate job: %w", err)
	}

	if err := uc.outcomes.UpsertBatch(ctx, result.Outcomes); err != nil {
		return nil, fmt.Errorf("store outcomes: %w", err)
	}

	applyOutcomes(job, domain.PhaseValidate, result.Outcomes)
	if err := uc.jobs.UpdateRun(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	publishStatus(ctx, uc.publisher, job, uc.logger)

	uc.logger.Info("Job validated",
		zap.String("job_id", id.String()),
		zap.String("status", string(job.Status)),
		zap.Int("success", job.SuccessCount),
		zap.Int("failed", job.FailureCount),
		zap.Int("duplicate", job.DuplicateCount),
	)

	return resultFor(job, result.Outcomes), nil
}
