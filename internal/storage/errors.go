package storage

import (
	"errors"
	"fmt"
)

// Storage errors for append-only stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Append-only stores do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// PersistenceError wraps a row store read or write failure with the
// operation and project it happened on.
type PersistenceError struct {
	Op        string // "read" or "write"
	ProjectID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed for project %q: %v", e.Op, e.ProjectID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Kind returns the stable error kind.
func (e *PersistenceError) Kind() string {
	return "persistence_error"
}
