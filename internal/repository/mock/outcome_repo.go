package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/repository"
)

// Ensure MockOutcomeRepository implements repository.OutcomeRepository.
var _ repository.OutcomeRepository = (*MockOutcomeRepository)(nil)

// MockOutcomeRepository is an in-memory mock of the outcome repository. It
// mirrors the real upsert semantics: one outcome per (job, row index), latest
// write wins.
type MockOutcomeRepository struct {
	mu       sync.RWMutex
	outcomes map[uuid.UUID]map[int]domain.RowOutcome

	UpsertBatchFunc     func(ctx context.Context, outcomes []domain.RowOutcome) error
	ListByJobFunc       func(ctx context.Context, jobID uuid.UUID) ([]domain.RowOutcome, error)
	ListFailedByJobFunc func(ctx context.Context, jobID uuid.UUID) ([]domain.RowOutcome, error)
}

// NewMockOutcomeRepository creates a new mock outcome repository.
func NewMockOutcomeRepository() *MockOutcomeRepository {
	return &MockOutcomeRepository{
		outcomes: make(map[uuid.UUID]map[int]domain.RowOutcome),
	}
}

func (m *MockOutcomeRepository) UpsertBatch(ctx context.Context, outcomes []domain.RowOutcome) error {
	if m.UpsertBatchFunc != nil {
		return m.UpsertBatchFunc(ctx, outcomes)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range outcomes {
		byRow, ok := m.outcomes[o.JobID]
		if !ok {
			byRow = make(map[int]domain.RowOutcome)
			m.outcomes[o.JobID] = byRow
		}
		byRow[o.RowIndex] = o
	}
	return nil
}

func (m *MockOutcomeRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.RowOutcome, error) {
	if m.ListByJobFunc != nil {
		return m.ListByJobFunc(ctx, jobID)
	}
	return m.list(jobID, ""), nil
}

func (m *MockOutcomeRepository) ListFailedByJob(ctx context.Context, jobID uuid.UUID) ([]domain.RowOutcome, error) {
	if m.ListFailedByJobFunc != nil {
		return m.ListFailedByJobFunc(ctx, jobID)
	}
	return m.list(jobID, domain.OutcomeFailed), nil
}

func (m *MockOutcomeRepository) list(jobID uuid.UUID, state domain.OutcomeState) []domain.RowOutcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]domain.RowOutcome, 0, len(m.outcomes[jobID]))
	for _, o := range m.outcomes[jobID] {
		if state == "" || o.State == state {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RowIndex < result[j].RowIndex })
	return result
}
