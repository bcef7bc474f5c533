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

// Ensure pgRawRowRepo implements repository.RawRowRepository.
var _ repository.RawRowRepository = (*pgRawRowRepo)(nil)

type pgRawRowRepo struct {
	pool *pgxpool.Pool
}

// NewRawRowRepository creates a PostgreSQL-backed raw row repository.
func NewRawRowRepository(pool *pgxpool.Pool) repository.RawRowRepository {
	return &pgRawRowRepo{pool: pool}
}

func (r *pgRawRowRepo) InsertBatch(ctx context.Context, jobID uuid.UUID, rows []domain.RawRow) error {
	batch := &pgx.Batch{}
	query := `INSERT INTO ingest_raw_rows (job_id, row_index, fields) VALUES ($1, $2, $3)`

	for i := range rows {
		fields, err := json.Marshal(rows[i].Fields)
		if err != nil {
			return fmt.Errorf("postgres: marshal row %d: %w", rows[i].Index, err)
		}
		batch.Queue(query, jobID, rows[i].Index, fields)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return storeErr("insert raw rows", err)
		}
	}
	return nil
}

func (r *pgRawRowRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.RawRow, error) {
	query := `
		SELECT row_index, fields
		FROM ingest_raw_rows
		WHERE job_id = $1
		ORDER BY row_index`

	pgRows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, storeErr("list raw rows", err)
	}
	defer pgRows.Close()

	var rows []domain.RawRow
	for pgRows.Next() {
		var row domain.RawRow
		var fields []byte
		if err := pgRows.Scan(&row.Index, &fields); err != nil {
			return nil, storeErr("scan raw row", err)
		}
		if err := json.Unmarshal(fields, &row.Fields); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal row %d: %w", row.Index, err)
		}
		rows = append(rows, row)
	}
	if err := pgRows.Err(); err != nil {
		return nil, storeErr("list raw rows", err)
	}
	return rows, nil
}
