package store

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("duplicate record")

	// ErrVersionConflict is returned when a versioned write lost a race
	// with another writer of the same record.
	ErrVersionConflict = errors.New("version conflict")
)
