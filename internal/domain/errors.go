package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found by ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned when the requested operation is not
	// valid for the job's current status. No partial work is performed.
	ErrInvalidTransition = errors.New("operation not valid for current job status")

	// ErrInvalidSource is returned when an unsupported source type is submitted.
	ErrInvalidSource = errors.New("invalid or unsupported source type")

	// ErrEmptyBatch is returned when a submission contains no rows.
	ErrEmptyBatch = errors.New("batch contains no rows")

	// ErrBatchTooLarge is returned when a submission exceeds the row limit.
	ErrBatchTooLarge = errors.New("batch exceeds maximum row count")

	// ErrStoreUnavailable indicates the persistence store is unreachable for
	// the whole batch, not a single-row constraint failure.
	ErrStoreUnavailable = errors.New("persistence store is unavailable")

	// ErrResolverUnavailable indicates the external metadata resolver is down
	// for the whole batch.
	ErrResolverUnavailable = errors.New("external resolver is unavailable")
)
