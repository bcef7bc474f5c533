package mock

import (
	"context"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/events"
)

// Ensure MockPublisher implements events.Publisher.
var _ events.Publisher = (*MockPublisher)(nil)

// MockPublisher records published job snapshots for test assertions.
type MockPublisher struct {
	Published []*domain.Job
	PublishFn func(ctx context.Context, job *domain.Job) error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishStatus(ctx context.Context, job *domain.Job) error {
	if m.PublishFn != nil {
		return m.PublishFn(ctx, job)
	}
	snapshot := *job
	m.Published = append(m.Published, &snapshot)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}
