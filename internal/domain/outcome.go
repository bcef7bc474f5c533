package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeState classifies the per-row result of one processing attempt.
type OutcomeState string

const (
	// OutcomeValidated marks a row that passed normalization and dedup in a
	// validate-only pass. It counts as a success but nothing was persisted.
	OutcomeValidated OutcomeState = "validated"
	OutcomeCommitted OutcomeState = "committed"
	OutcomeDuplicate OutcomeState = "duplicate"
	OutcomeFailed    OutcomeState = "failed"
)

// Row-level error classifications. Coarse by design: operators group and
// filter on these, the raw message stays in RowOutcome.Error.
const (
	ErrTypeMissingRequiredField = "missing_required_field"
	ErrTypeMalformedField       = "malformed_field"
	ErrTypeUnsupportedSource    = "unsupported_source"
	ErrTypeResolverError        = "resolver_error"
	ErrTypePersistenceError     = "persistence_error"
	ErrTypeStoreUnavailable     = "store_unavailable"
)

// RowOutcome is the recorded result of processing one input row. Every row
// produces exactly one outcome per attempt; a retried row's outcome
// supersedes the prior one (upsert keyed on job id + row index).
type RowOutcome struct {
	JobID      uuid.UUID        `json:"job_id"`
	RowIndex   int              `json:"row_index"`
	ExternalID string           `json:"external_id,omitempty"`
	State      OutcomeState     `json:"state"`
	EntityID   uuid.UUID        `json:"entity_id,omitempty"`
	ErrorType  string           `json:"error_type,omitempty"`
	Error      string           `json:"error,omitempty"`
	Payload    *CanonicalRecord `json:"payload,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// RowError is a recoverable row-level failure produced by the normalizer or
// the persistence step. It never aborts sibling rows.
type RowError struct {
	Type string
	Msg  string
}

func (e *RowError) Error() string {
	return e.Msg
}

// ProcessResult summarizes one pipeline pass over a job's rows.
type ProcessResult struct {
	JobID          uuid.UUID    `json:"job_id"`
	Status         JobStatus    `json:"status"`
	TotalRows      int          `json:"total_rows"`
	SuccessCount   int          `json:"success_count"`
	FailureCount   int          `json:"failure_count"`
	DuplicateCount int          `json:"duplicate_count"`
	Outcomes       []RowOutcome `json:"outcomes"`
}

// CountOutcomes tallies a full outcome set into job counters. Validated and
// committed rows both count as successes.
func CountOutcomes(outcomes []RowOutcome) (success, failure, duplicate int) {
	for i := range outcomes {
		switch outcomes[i].State {
		case OutcomeValidated, OutcomeCommitted:
			success++
		case OutcomeDuplicate:
			duplicate++
		case OutcomeFailed:
			failure++
		}
	}
	return success, failure, duplicate
}

// Progress reports chunk-level completion back to the caller.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// ProgressFunc is invoked after each completed chunk. It must be cheap; the
// pipeline calls it synchronously.
type ProgressFunc func(Progress)

// ErrorGroup is one entry of a job's capped, grouped error summary.
type ErrorGroup struct {
	ErrorType string   `json:"error_type"`
	Count     int      `json:"count"`
	Examples  []string `json:"examples,omitempty"`
}

// ReconciliationReport is the partitioned, human-auditable view of a job's
// outcomes. It is a pure projection and is re-derived on every request.
type ReconciliationReport struct {
	JobID         uuid.UUID    `json:"job_id"`
	Status        JobStatus    `json:"status"`
	CommittedRows []RowOutcome `json:"committed_rows"`
	FailedRows    []RowOutcome `json:"failed_rows"`
	DuplicateRows []RowOutcome `json:"duplicate_rows"`
	ErrorSummary  []ErrorGroup `json:"error_summary,omitempty"`
}
