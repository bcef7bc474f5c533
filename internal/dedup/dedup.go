package dedup

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/repository"
)

// Deduplicator resolves whether an equivalent entity already exists for a
// candidate record. It never creates, locks or marks anything, so it is safe
// to call many times per row during validate-only previews.
type Deduplicator struct {
	store repository.VideoStore
}

// New creates a Deduplicator backed by the given video store.
func New(store repository.VideoStore) *Deduplicator {
	return &Deduplicator{store: store}
}

// FindExisting checks the persisted store for an entity matching the
// candidate's natural key. Key precedence (external id first, composite
// fallback) is decided once, inside CanonicalRecord.NaturalKey.
func (d *Deduplicator) FindExisting(ctx context.Context, rec *domain.CanonicalRecord) (uuid.UUID, bool, error) {
	id, found, err := d.store.Lookup(ctx, rec.NaturalKey())
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("dedup lookup: %w", err)
	}
	return id, found, nil
}

// SeenSet tracks natural keys already claimed by earlier rows within one
// pipeline pass. Ties inside a batch resolve first-row-wins: later rows that
// hit a claimed key are duplicates even before anything is persisted.
//
// A SeenSet belongs to a single pass and is not safe for concurrent use; the
// processor consults it only on its sequential path.
type SeenSet struct {
	claimed map[string]int
}

// NewSeenSet creates an empty seen-key set.
func NewSeenSet() *SeenSet {
	return &SeenSet{claimed: make(map[string]int)}
}

// Claim registers rowIndex as the owner of key. When the key was already
// claimed it returns the earlier row's index and dup=true, leaving the
// original claim in place.
func (s *SeenSet) Claim(key string, rowIndex int) (firstRow int, dup bool) {
	if first, ok := s.claimed[key]; ok {
		return first, true
	}
	s.claimed[key] = rowIndex
	return rowIndex, false
}
