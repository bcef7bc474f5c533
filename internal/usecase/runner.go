package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/events"
	"github.com/flashflowhq/ingest/internal/report"
	"github.com/flashflowhq/ingest/internal/repository"
)

// publishStatus emits a job lifecycle event. Event delivery is advisory:
// a broker hiccup must not fail an otherwise completed operation.
func publishStatus(ctx context.Context, pub events.Publisher, job *domain.Job, logger *zap.Logger) {
	if pub == nil {
		return
	}
	if err := pub.PublishStatus(ctx, job); err != nil {
		logger.Warn("Failed to publish job event",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(job.Status)),
			zap.Error(err),
		)
	}
}

// applyOutcomes stamps the counters, status, phase and error summary implied
// by a full outcome set onto the job.
func applyOutcomes(job *domain.Job, phase domain.Phase, outcomes []domain.RowOutcome) {
	success, failure, duplicate := domain.CountOutcomes(outcomes)
	job.SuccessCount = success
	job.FailureCount = failure
	job.DuplicateCount = duplicate
	job.Phase = phase
	job.Status = domain.StatusFor(phase, job.TotalRows, failure)
	job.ErrorSummary = report.Summarize(outcomes)
	job.UpdatedAt = time.Now().UTC()
}

// isCatastrophic reports whether a pipeline error poisons the whole batch
// (store or resolver down) rather than a single operation.
func isCatastrophic(err error) bool {
	return errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, domain.ErrResolverUnavailable)
}

// failCatastrophic marks the job failed with a single summary entry instead
// of per-row attribution, per the error-handling contract. Context
// cancellation is not catastrophic: the job stays in its last stable state
// and can be resumed by re-invoking the same operation.
func failCatastrophic(ctx context.Context, jobs repository.JobRepository, pub events.Publisher, job *domain.Job, phase domain.Phase, cause error, logger *zap.Logger) {
	errType := domain.ErrTypeStoreUnavailable
	if errors.Is(cause, domain.ErrResolverUnavailable) {
		errType = domain.ErrTypeResolverError
	}

	job.Status = domain.StatusFailed
	job.Phase = phase
	job.SuccessCount = 0
	job.DuplicateCount = 0
	job.FailureCount = job.TotalRows
	job.ErrorSummary = []domain.ErrorGroup{{
		ErrorType: errType,
		Count:     job.TotalRows,
	}}
	job.UpdatedAt = time.Now().UTC()

	if err := jobs.UpdateRun(ctx, job); err != nil {
		logger.Error("Failed to record catastrophic failure",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		return
	}
	publishStatus(ctx, pub, job, logger)
}

// resultFor assembles the ProcessResult reported back to the caller after a
// completed pass. outcomes is the set of outcomes this pass touched; counts
// come from the job's merged state.
func resultFor(job *domain.Job, outcomes []domain.RowOutcome) *domain.ProcessResult {
	return &domain.ProcessResult{
		JobID:          job.ID,
		Status:         job.Status,
		TotalRows:      job.TotalRows,
		SuccessCount:   job.SuccessCount,
		FailureCount:   job.FailureCount,
		DuplicateCount: job.DuplicateCount,
		Outcomes:       outcomes,
	}
}
