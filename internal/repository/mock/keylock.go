package mock

import (
	"context"
	"sync"

	"github.com/flashflowhq/ingest/internal/repository"
)

// Ensure MockKeyLock implements repository.KeyLock.
var _ repository.KeyLock = (*MockKeyLock)(nil)

// MockKeyLock is an in-memory per-key lock for testing.
type MockKeyLock struct {
	mu    sync.Mutex
	held  map[string]bool
	Locks int // total successful acquisitions, for assertions

	AcquireKeyFunc func(ctx context.Context, key string) (bool, error)
	ReleaseKeyFunc func(ctx context.Context, key string) error
}

// NewMockKeyLock creates a new mock key lock.
func NewMockKeyLock() *MockKeyLock {
	return &MockKeyLock{held: make(map[string]bool)}
}

func (m *MockKeyLock) AcquireKey(ctx context.Context, key string) (bool, error) {
	if m.AcquireKeyFunc != nil {
		return m.AcquireKeyFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	m.Locks++
	return true, nil
}

func (m *MockKeyLock) ReleaseKey(ctx context.Context, key string) error {
	if m.ReleaseKeyFunc != nil {
		return m.ReleaseKeyFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}
