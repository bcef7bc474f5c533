package domain

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies where a batch of raw rows came from. It determines
// which fields the normalizer expects and how natural keys are derived.
type Source string

const (
	SourceTikTokURL Source = "tiktok_url"
	SourceCSV       Source = "csv"
)

// IsValid checks if the source is supported.
func (s Source) IsValid() bool {
	return s == SourceTikTokURL || s == SourceCSV
}

// JobStatus represents the lifecycle state of an ingestion job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusValidated JobStatus = "validated"
	StatusCommitted JobStatus = "committed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// IsSettled returns true once the job has left pending, i.e. at least one
// full pipeline pass has recorded an outcome for every row.
func (s JobStatus) IsSettled() bool {
	return s != "" && s != StatusPending
}

// Phase records which pipeline phase produced the job's current status.
// A partial job reached during validation has no committed rows yet and may
// still be committed; a partial job reached during commit may only be retried.
type Phase string

const (
	PhaseValidate Phase = "validate"
	PhaseCommit   Phase = "commit"
)

// Job is one submitted batch of raw records moving through
// validate/commit/retry. Jobs are only mutated by the pipeline; they are
// never deleted here (retention is an external concern).
type Job struct {
	ID             uuid.UUID    `json:"id"`
	Source         Source       `json:"source"`
	SourceRef      string       `json:"source_ref"`
	Status         JobStatus    `json:"status"`
	Phase          Phase        `json:"phase,omitempty"`
	TotalRows      int          `json:"total_rows"`
	SuccessCount   int          `json:"success_count"`
	FailureCount   int          `json:"failure_count"`
	DuplicateCount int          `json:"duplicate_count"`
	ErrorSummary   []ErrorGroup `json:"error_summary,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// CanValidate reports whether a validate pass is permitted. Validation is
// pure (no persistence) and outcomes are upserted per row index, so a job
// that has not yet committed anything may be re-validated safely.
func (j *Job) CanValidate() bool {
	if j.Status == StatusPending {
		return true
	}
	if j.Phase != PhaseValidate {
		return false
	}
	return j.Status == StatusValidated || j.Status == StatusPartial || j.Status == StatusFailed
}

// CanCommit reports whether a commit pass is permitted. A validate-phase
// partial job may still commit its valid rows; a fully failed validation has
// nothing to commit.
func (j *Job) CanCommit() bool {
	if j.Phase != PhaseValidate {
		return false
	}
	return j.Status == StatusValidated || j.Status == StatusPartial
}

// CanRetry reports whether a retry of the failed subset is permitted.
func (j *Job) CanRetry() bool {
	return j.Status == StatusFailed || j.Status == StatusPartial
}

// StatusFor returns the job status implied by the counts of a completed
// phase: all rows failed -> failed, some failed -> partial, none failed ->
// validated or committed depending on the phase.
func StatusFor(phase Phase, totalRows, failureCount int) JobStatus {
	switch {
	case totalRows > 0 && failureCount == totalRows:
		return StatusFailed
	case failureCount > 0:
		return StatusPartial
	case phase == PhaseCommit:
		return StatusCommitted
	default:
		return StatusValidated
	}
}

// SubmitRequest represents an incoming batch submission from the API.
type SubmitRequest struct {
	Source    Source              `json:"source" binding:"required"`
	SourceRef string              `json:"source_ref"`
	Rows      []map[string]string `json:"rows" binding:"required"`
}

// SubmitResponse is returned after a successful submission.
type SubmitResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status JobStatus `json:"status"`
	Rows   int       `json:"rows"`
}
