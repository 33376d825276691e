package scorestore

import "errors"

// Sentinel kinds for score store errors.
var (
	// ErrPersistence wraps storage failures on the durable write path.
	ErrPersistence = errors.New("score store failure")

	// ErrNotFound marks a user with no qualifying submission in scope.
	ErrNotFound = errors.New("not found")
)
