package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/report"
	"github.com/flashflowhq/ingest/internal/repository"
)

// ReportUsecase builds the reconciliation report and the failed-row CSV
// export for a job. Both are pure projections of the stored outcomes.
type ReportUsecase struct {
	jobs     repository.JobRepository
	outcomes repository.OutcomeRepository
	logger   *zap.Logger
}

// NewReportUsecase creates a new ReportUsecase.
func NewReportUsecase(jobs repository.JobRepository, outcomes repository.OutcomeRepository, logger *zap.Logger) *ReportUsecase {
	return &ReportUsecase{
		jobs:     jobs,
		outcomes: outcomes,
		logger:   logger,
	}
}

// Reconciliation returns the job's current outcomes partitioned into the
// committed/failed/duplicate buckets with the grouped error summary.
func (uc *ReportUsecase) Reconciliation(ctx context.Context, id uuid.UUID) (*domain.ReconciliationReport, error) {
	job, err := uc.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrJobNotFound
	}
	outcomes, err := uc.outcomes.ListByJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	return report.Build(job, outcomes), nil
}

// FailedRowsCSV exports the job's failed rows for operator fix-and-resubmit.
func (uc *ReportUsecase) FailedRowsCSV(ctx context.Context, id uuid.UUID) ([]byte, error) {
	job, err := uc.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrJobNotFound
	}
	failed, err := uc.outcomes.ListFailedByJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load failed outcomes: %w", err)
	}
	data, err := report.FailedRowsCSV(job.Source, failed)
	if err != nil {
		uc.logger.Error("CSV export failed", zap.String("job_id", id.String()), zap.Error(err))
		return nil, err
	}
	return data, nil
}
