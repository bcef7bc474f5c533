package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flashflowhq/ingest/internal/dedup"
	"github.com/flashflowhq/ingest/internal/domain"
	"github.com/flashflowhq/ingest/internal/metrics"
	"github.com/flashflowhq/ingest/internal/normalize"
	"github.com/flashflowhq/ingest/internal/repository"
)

// Mode selects whether a pipeline pass persists anything.
type Mode string

const (
	ModeValidate Mode = "validate"
	ModeCommit   Mode = "commit"
)

const (
	// DefaultChunkSize bounds memory use and sets the progress-report grain.
	DefaultChunkSize = 250

	lockAttempts   = 3
	lockRetryDelay = 50 * time.Millisecond
)

// Processor orchestrates normalization, dedup and persistence across all
// rows of a job, in bounded-size chunks, producing one outcome per row.
type Processor struct {
	normalizer *normalize.Normalizer
	dedup      *dedup.Deduplicator
	store      repository.VideoStore
	locks      repository.KeyLock
	chunkSize  int
	workers    int
	logger     *zap.Logger
}

// NewProcessor creates a Processor. chunkSize and workers fall back to sane
// defaults when non-positive.
func NewProcessor(
	normalizer *normalize.Normalizer,
	deduper *dedup.Deduplicator,
	store repository.VideoStore,
	locks repository.KeyLock,
	chunkSize int,
	workers int,
	logger *zap.Logger,
) *Processor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		normalizer: normalizer,
		dedup:      deduper,
		store:      store,
		locks:      locks,
		chunkSize:  chunkSize,
		workers:    workers,
		logger:     logger,
	}
}

// Process runs one pipeline pass over rows. Per chunk: normalize all rows in
// parallel, then walk them in input order deduplicating against the store and
// the keys already seen in this pass, persisting non-duplicate rows when mode
// is commit. Row-level failures never abort sibling rows; only an unavailable
// store or resolver aborts the pass.
//
// progress may be nil. Outcomes always carry the original row index, so the
// caller can attribute results regardless of chunking.
func (p *Processor) Process(ctx context.Context, job *domain.Job, rows []domain.RawRow, mode Mode, progress domain.ProgressFunc) (*domain.ProcessResult, error) {
	metrics.JobsActive.Inc()
	defer metrics.JobsActive.Dec()

	seen := dedup.NewSeenSet()
	committedByKey := make(map[string]uuid.UUID)
	outcomes := make([]domain.RowOutcome, 0, len(rows))
	total := len(rows)

	for start := 0; start < total; start += p.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + p.chunkSize
		if end > total {
			end = total
		}
		chunk := rows[start:end]
		chunkStart := time.Now()

		normalized, err := p.normalizeChunk(ctx, job.Source, chunk)
		if err != nil {
			return nil, err
		}

		for i, row := range chunk {
			outcome, err := p.resolveRow(ctx, job, row, normalized[i], mode, seen, committedByKey)
			if err != nil {
				return nil, err
			}
			metrics.RowsProcessed.WithLabelValues(string(job.Source), string(outcome.State)).Inc()
			outcomes = append(outcomes, outcome)
		}

		metrics.ChunkDuration.WithLabelValues(string(mode)).Observe(time.Since(chunkStart).Seconds())

		p.logger.Debug("Chunk processed",
			zap.String("job_id", job.ID.String()),
			zap.String("mode", string(mode)),
			zap.Int("current", end),
			zap.Int("total", total),
		)
		if progress != nil {
			progress(domain.Progress{Current: end, Total: total})
		}
	}

	success, failure, duplicate := domain.CountOutcomes(outcomes)
	return &domain.ProcessResult{
		JobID:          job.ID,
		TotalRows:      total,
		SuccessCount:   success,
		FailureCount:   failure,
		DuplicateCount: duplicate,
		Outcomes:       outcomes,
	}, nil
}

type normResult struct {
	rec    *domain.CanonicalRecord
	rowErr *domain.RowError
}

// normalizeChunk fans the chunk out to a bounded pool of goroutines. Results
// land in a slice indexed by chunk position, so output order is stable no
// matter which worker finished first.
func (p *Processor) normalizeChunk(ctx context.Context, source domain.Source, chunk []domain.RawRow) ([]normResult, error) {
	results := make([]normResult, len(chunk))

	indexes := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var fatal error

	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				rec, rowErr, err := p.normalizer.Normalize(ctx, source, chunk[i])
				if err != nil {
					mu.Lock()
					if fatal == nil {
						fatal = err
					}
					mu.Unlock()
					continue
				}
				results[i] = normResult{rec: rec, rowErr: rowErr}
			}
		}()
	}

	for i := range chunk {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	if fatal != nil {
		return nil, fmt.Errorf("normalize chunk: %w", fatal)
	}
	return results, nil
}

// resolveRow classifies one normalized row: failed, duplicate (store or
// intra-batch), validated, or committed. Returns an error only for
// batch-fatal store failures.
func (p *Processor) resolveRow(
	ctx context.Context,
	job *domain.Job,
	row domain.RawRow,
	norm normResult,
	mode Mode,
	seen *dedup.SeenSet,
	committedByKey map[string]uuid.UUID,
) (domain.RowOutcome, error) {
	now := time.Now().UTC()
	outcome := domain.RowOutcome{
		JobID:     job.ID,
		RowIndex:  row.Index,
		UpdatedAt: now,
	}

	if norm.rowErr != nil {
		outcome.State = domain.OutcomeFailed
		outcome.ErrorType = norm.rowErr.Type
		outcome.Error = norm.rowErr.Msg
		outcome.ExternalID = row.Fields["external_id"]
		return outcome, nil
	}

	rec := norm.rec
	outcome.ExternalID = rec.ExternalID
	outcome.Payload = rec
	key := rec.NaturalKey()

	// Intra-batch dedup: first row wins, later rows with the same key are
	// duplicates even when nothing has been persisted yet.
	if firstRow, dup := seen.Claim(key, row.Index); dup {
		outcome.State = domain.OutcomeDuplicate
		outcome.EntityID = committedByKey[key]
		p.logger.Debug("Intra-batch duplicate",
			zap.String("job_id", job.ID.String()),
			zap.Int("row", row.Index),
			zap.Int("first_row", firstRow),
		)
		return outcome, nil
	}

	entityID, found, err := p.dedup.FindExisting(ctx, rec)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return outcome, err
		}
		outcome.State = domain.OutcomeFailed
		outcome.ErrorType = domain.ErrTypePersistenceError
		outcome.Error = err.Error()
		return outcome, nil
	}
	if found {
		outcome.State = domain.OutcomeDuplicate
		outcome.EntityID = entityID
		return outcome, nil
	}

	if mode == ModeValidate {
		outcome.State = domain.OutcomeValidated
		return outcome, nil
	}

	return p.commitRow(ctx, outcome, key, rec, committedByKey)
}

// commitRow persists one row under its natural-key lock. Best effort per row:
// a rejected write records a failed outcome and the pass moves on.
func (p *Processor) commitRow(ctx context.Context, outcome domain.RowOutcome, key string, rec *domain.CanonicalRecord, committedByKey map[string]uuid.UUID) (domain.RowOutcome, error) {
	acquired, err := p.acquireKeyLock(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return outcome, err
		}
		outcome.State = domain.OutcomeFailed
		outcome.ErrorType = domain.ErrTypePersistenceError
		outcome.Error = fmt.Sprintf("acquire key lock: %v", err)
		return outcome, nil
	}
	if !acquired {
		outcome.State = domain.OutcomeFailed
		outcome.ErrorType = domain.ErrTypePersistenceError
		outcome.Error = "natural key is locked by a concurrent commit, retry later"
		return outcome, nil
	}
	defer func() {
		if err := p.locks.ReleaseKey(ctx, key); err != nil {
			p.logger.Warn("Failed to release key lock", zap.String("key", key), zap.Error(err))
		}
	}()

	entityID, created, err := p.store.InsertIfAbsent(ctx, key, rec)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return outcome, err
		}
		outcome.State = domain.OutcomeFailed
		outcome.ErrorType = domain.ErrTypePersistenceError
		outcome.Error = err.Error()
		return outcome, nil
	}

	if !created {
		// Lost the race to a concurrent committer between dedup and write.
		metrics.KeyConflicts.Inc()
		outcome.State = domain.OutcomeDuplicate
		outcome.EntityID = entityID
		return outcome, nil
	}

	outcome.State = domain.OutcomeCommitted
	outcome.EntityID = entityID
	committedByKey[key] = entityID
	return outcome, nil
}

func (p *Processor) acquireKeyLock(ctx context.Context, key string) (bool, error) {
	for attempt := 0; attempt < lockAttempts; attempt++ {
		acquired, err := p.locks.AcquireKey(ctx, key)
		if err != nil || acquired {
			return acquired, err
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return false, nil
}
