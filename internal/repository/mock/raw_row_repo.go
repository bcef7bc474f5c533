package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/repository"
)

// Ensure MockRawRowRepository implements repository.RawRowRepository.
var _ repository.RawRowRepository = (*MockRawRowRepository)(nil)

// MockRawRowRepository is an in-memory mock of the raw row repository.
type MockRawRowRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID][]domain.RawRow

	InsertBatchFunc func(ctx context.Context, jobID uuid.UUID, rows []domain.RawRow) error
	ListByJobFunc   func(ctx context.Context, jobID uuid.UUID) ([]domain.RawRow, error)
}

// NewMockRawRowRepository creates a new mock raw row repository.
func NewMockRawRowRepository() *MockRawRowRepository {
	return &MockRawRowRepository{
		rows: make(map[uuid.UUID][]domain.RawRow),
	}
}

func (m *MockRawRowRepository) InsertBatch(ctx context.Context, jobID uuid.UUID, rows []domain.RawRow) error {
	if m.InsertBatchFunc != nil {
		return m.InsertBatchFunc(ctx, jobID, rows)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[jobID] = append([]domain.RawRow(nil), rows...)
	return nil
}

func (m *MockRawRowRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.RawRow, error) {
	if m.ListByJobFunc != nil {
		return m.ListByJobFunc(ctx, jobID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.RawRow(nil), m.rows[jobID]...), nil
}
