package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/flashflowhq/ingest/internal/domain"
	mockrepo "github.com/flashflowhq/ingest/internal/repository/mock"
)

func TestFindExisting(t *testing.T) {
	store := mockrepo.NewMockVideoStore()
	d := New(store)

	rec := &domain.CanonicalRecord{
		Source:     domain.SourceTikTokURL,
		ExternalID: "123",
		TikTok:     &domain.TikTokFields{URL: "https://www.tiktok.com/@a/video/123"},
	}

	_, found, err := d.FindExisting(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("empty store must not report a match")
	}

	id, _, err := store.InsertIfAbsent(context.Background(), rec.NaturalKey(), rec)
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}

	gotID, found, err := d.FindExisting(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected a match after insert")
	}
	if gotID != id {
		t.Errorf("entity id = %s, want %s", gotID, id)
	}
}

func TestFindExisting_StoreError(t *testing.T) {
	store := mockrepo.NewMockVideoStore()
	store.LookupFunc = func(ctx context.Context, naturalKey string) (uuid.UUID, bool, error) {
		return uuid.Nil, false, domain.ErrStoreUnavailable
	}
	d := New(store)

	rec := &domain.CanonicalRecord{Source: domain.SourceCSV, ExternalID: "x"}
	_, _, err := d.FindExisting(context.Background(), rec)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected wrapped ErrStoreUnavailable, got %v", err)
	}
}

func TestSeenSet_FirstRowWins(t *testing.T) {
	seen := NewSeenSet()

	first, dup := seen.Claim("csv:id:1", 0)
	if dup || first != 0 {
		t.Errorf("first claim: got (%d, %v), want (0, false)", first, dup)
	}

	first, dup = seen.Claim("csv:id:1", 5)
	if !dup || first != 0 {
		t.Errorf("second claim: got (%d, %v), want (0, true)", first, dup)
	}

	// A different key is unclaimed.
	first, dup = seen.Claim("csv:id:2", 5)
	if dup || first != 5 {
		t.Errorf("new key: got (%d, %v), want (5, false)", first, dup)
	}

	// The original claim is still in place.
	first, dup = seen.Claim("csv:id:1", 9)
	if !dup || first != 0 {
		t.Errorf("third claim: got (%d, %v), want (0, true)", first, dup)
	}
}
