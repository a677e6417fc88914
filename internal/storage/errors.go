package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Append-only stores do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStatusConflict is returned when an optimistic status update
	// observes a different current status than expected. Lifecycle
	// transitions assume a single writer per edge id; concurrent sweeps
	// must retry from a fresh read.
	ErrStatusConflict = errors.New("status conflict: edge status changed concurrently")
)
