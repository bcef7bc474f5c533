package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/repository"
)

// Ensure pgOutcomeRepo implements repository.OutcomeRepository.
var _ repository.OutcomeRepository = (*pgOutcomeRepo)(nil)

type pgOutcomeRepo struct {
	pool *pgxpool.Pool
}

// NewOutcomeRepository creates a PostgreSQL-backed row outcome repository.
func NewOutcomeRepository(pool *pgxpool.Pool) repository.OutcomeRepository {
	return &pgOutcomeRepo{pool: pool}
}

func (r *pgOutcomeRepo) UpsertBatch(ctx context.Context, outcomes []domain.RowOutcome) error {
	// The conflict target is the supersession rule: one outcome per row,
	// latest attempt wins.
	query := `
		INSERT INTO ingest_row_outcomes (job_id, row_index, external_id, state,
		                                 entity_id, error_type, error, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id, row_index) DO UPDATE
		SET external_id = EXCLUDED.external_id,
		    state       = EXCLUDED.state,
		    entity_id   = EXCLUDED.entity_id,
		    error_type  = EXCLUDED.error_type,
		    error       = EXCLUDED.error,
		    payload     = EXCLUDED.payload,
		    updated_at  = EXCLUDED.updated_at`

	batch := &pgx.Batch{}
	for i := range outcomes {
		o := &outcomes[i]
		payload, err := json.Marshal(o.Payload)
		if err != nil {
			return fmt.Errorf("postgres: marshal payload for row %d: %w", o.RowIndex, err)
		}
		var entityID *uuid.UUID
		if o.EntityID != uuid.Nil {
			entityID = &o.EntityID
		}
		batch.Queue(query, o.JobID, o.RowIndex, o.ExternalID, o.State,
			entityID, o.ErrorType, o.Error, payload, o.UpdatedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range outcomes {
		if _, err := results.Exec(); err != nil {
			return storeErr("upsert outcomes", err)
		}
	}
	return nil
}

func (r *pgOutcomeRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.RowOutcome, error) {
	return r.list(ctx, jobID, false)
}

func (r *pgOutcomeRepo) ListFailedByJob(ctx context.Context, jobID uuid.UUID) ([]domain.RowOutcome, error) {
	return r.list(ctx, jobID, true)
}

func (r *pgOutcomeRepo) list(ctx context.Context, jobID uuid.UUID, failedOnly bool) ([]domain.RowOutcome, error) {
	query := `
		SELECT job_id, row_index, external_id, state, entity_id,
		       error_type, error, payload, updated_at
		FROM ingest_row_outcomes
		WHERE job_id = $1`
	args := []any{jobID}
	if failedOnly {
		query += ` AND state = $2`
		args = append(args, domain.OutcomeFailed)
	}
	query += ` ORDER BY row_index`

	pgRows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list outcomes", err)
	}
	defer pgRows.Close()

	var outcomes []domain.RowOutcome
	for pgRows.Next() {
		var o domain.RowOutcome
		var entityID *uuid.UUID
		var payload []byte
		if err := pgRows.Scan(&o.JobID, &o.RowIndex, &o.ExternalID, &o.State,
			&entityID, &o.ErrorType, &o.Error, &payload, &o.UpdatedAt); err != nil {
			return nil, storeErr("scan outcome", err)
		}
		if entityID != nil {
			o.EntityID = *entityID
		}
		if len(payload) > 0 && string(payload) != "null" {
			if err := json.Unmarshal(payload, &o.Payload); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal payload for row %d: %w", o.RowIndex, err)
			}
		}
		outcomes = append(outcomes, o)
	}
	if err := pgRows.Err(); err != nil {
		return nil, storeErr("list outcomes", err)
	}
	return outcomes, nil
}
