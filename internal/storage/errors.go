package storage

import "errors"

// Errors shared by the listing and snapshot stores. Stored rows are never
// updated in place.
var (
	// ErrNotFound is returned when no listing or snapshot has the requested key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a listing ID or a snapshot
	// (run_id, set_index) pair is already stored.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned for listings without ID or URL and
	// snapshots without a run ID or with an out-of-range set index.
	ErrInvalidInput = errors.New("invalid input")
)
