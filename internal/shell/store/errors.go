// Package store provides persistence for Village Lookup reference data.
package store

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrConnectionFailed is returned when database connection fails.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when database migration fails.
	ErrMigrationFailed = errors.New("database migration failed")

	// ErrQueryFailed is returned when a read or write statement fails.
	ErrQueryFailed = errors.New("query failed")

	// ErrTxFailed is returned when a transaction operation fails.
	ErrTxFailed = errors.New("transaction failed")

	// ErrUnsupportedDriver is returned for a driver other than postgres or sqlite3.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// StoreError wraps errors with additional context.
type StoreError struct {
	Op      string // Operation that failed (e.g., "WardInTownship")
	Entity  string // Entity type (e.g., "ward", "icd10_code")
	ID      string // Lookup key if applicable
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, entity, id, message string, err error) *StoreError {
	return &StoreError{
		Op:      op,
		Entity:  entity,
		ID:      id,
		Message: message,
		Err:     err,
	}
}

// queryError wraps a driver error so that both ErrQueryFailed and the
// driver error (including context errors) match with errors.Is.
func queryError(op, entity, id string, err error) *StoreError {
	return NewStoreError(op, entity, id, err.Error(), fmt.Errorf("%w: %w", ErrQueryFailed, err))
}
