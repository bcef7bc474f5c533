package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/repository"
)

// Ensure pgVideoStore implements repository.VideoStore.
var _ repository.VideoStore = (*pgVideoStore)(nil)

type pgVideoStore struct {
	pool *pgxpool.Pool
}

// NewVideoStore creates a PostgreSQL-backed video store.
func NewVideoStore(pool *pgxpool.Pool) repository.VideoStore {
	return &pgVideoStore{pool: pool}
}

// InsertIfAbsent relies on the unique natural_key index: the insert silently
// does nothing on conflict, and the follow-up lookup resolves the winner.
// Atomic with respect to concurrent committers.
func (s *pgVideoStore) InsertIfAbsent(ctx context.Context, naturalKey string, rec *domain.CanonicalRecord) (uuid.UUID, bool, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("postgres: generate video id: %w", err)
	}

	query := `
		INSERT INTO videos (id, natural_key, source, external_id, url, title,
		                    caption, script, author, hashtags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (natural_key) DO NOTHING
		RETURNING id`

	var url, title, caption, script, author, hashtags string
	switch {
	case rec.TikTok != nil:
		url = rec.TikTok.URL
		caption = rec.TikTok.Caption
		author = rec.TikTok.Author
	case rec.CSV != nil:
		title = rec.CSV.Title
		caption = rec.CSV.Caption
		script = rec.CSV.Script
		hashtags = rec.CSV.Hashtags
	}

	var insertedID uuid.UUID
	err = s.pool.QueryRow(ctx, query,
		id, naturalKey, rec.Source, rec.ExternalID, url, title,
		caption, script, author, hashtags, time.Now().UTC(),
	).Scan(&insertedID)
	if err == nil {
		return insertedID, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, storeErr("insert video", err)
	}

	// Conflict: someone holds this natural key already.
	existingID, found, err := s.Lookup(ctx, naturalKey)
	if err != nil {
		return uuid.Nil, false, err
	}
	if !found {
		return uuid.Nil, false, fmt.Errorf("postgres: natural key %q conflicted but owner not found", naturalKey)
	}
	return existingID, false, nil
}

func (s *pgVideoStore) Lookup(ctx context.Context, naturalKey string) (uuid.UUID, bool, error) {
	query := `SELECT id FROM videos WHERE natural_key = $1`

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, query, naturalKey).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, storeErr("lookup video", err)
	}
	return id, true, nil
}
