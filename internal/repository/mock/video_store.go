package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/repository"
)

// Ensure MockVideoStore implements repository.VideoStore.
var _ repository.VideoStore = (*MockVideoStore)(nil)

// MockVideoStore is an in-memory mock of the video store keyed by natural key.
type MockVideoStore struct {
	mu       sync.Mutex
	entities map[string]uuid.UUID

	InsertIfAbsentFunc func(ctx context.Context, naturalKey string, rec *domain.CanonicalRecord) (uuid.UUID, bool, error)
	LookupFunc         func(ctx context.Context, naturalKey string) (uuid.UUID, bool, error)
}

// NewMockVideoStore creates a new mock video store.
func NewMockVideoStore() *MockVideoStore {
	return &MockVideoStore{
		entities: make(map[string]uuid.UUID),
	}
}

func (m *MockVideoStore) InsertIfAbsent(ctx context.Context, naturalKey string, rec *domain.CanonicalRecord) (uuid.UUID, bool, error) {
	if m.InsertIfAbsentFunc != nil {
		return m.InsertIfAbsentFunc(ctx, naturalKey, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.entities[naturalKey]; ok {
		return id, false, nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, false, err
	}
	m.entities[naturalKey] = id
	return id, true, nil
}

func (m *MockVideoStore) Lookup(ctx context.Context, naturalKey string) (uuid.UUID, bool, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, naturalKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.entities[naturalKey]
	return id, ok, nil
}

// Keys returns the natural keys currently stored (for test assertions).
func (m *MockVideoStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entities))
	for k := range m.entities {
		keys = append(keys, k)
	}
	return keys
}
