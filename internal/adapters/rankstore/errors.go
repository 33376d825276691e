package rankstore

import "errors"

// Sentinel kinds for rank store errors.
var (
	ErrNotFound     = errors.New("member not found")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrUnavailable  = errors.New("rank store unavailable")
)
