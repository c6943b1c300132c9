package store

import "errors"

// Sentinel errors returned by store operations. Callers classify with errors.Is.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when input fails a store-level check.
	ErrValidation = errors.New("validation failed")
)
