package ranking

import "errors"

// Sentinel kinds for ranking operations.
var (
	// ErrResyncInProgress reports that a full resync pass is already
	// running. Concurrent triggers coalesce into the running pass, so
	// operational callers treat this as success.
	ErrResyncInProgress = errors.New("resync already in progress")

	// ErrDuplicateSubmission reports a submission id that was already
	// accepted. The original row stands; no second row is written.
	ErrDuplicateSubmission = errors.New("duplicate submission")
)
