package ledger

import (
	"errors"
	"fmt"
)

// ErrRecorderClosed is returned by Handle after Close.
var ErrRecorderClosed = errors.New("ledger: recorder closed")

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // "memory" or "sqlite"
	Operation string // "store", "query", "delete", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// RetentionError represents an error while enforcing retention.
type RetentionError struct {
	RetentionDays int
	MaxRecords    int64
	Cause         error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("ledger retention error [retention_days=%d, max_records=%d]: %v",
		e.RetentionDays, e.MaxRecords, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(days int, maxRecords int64, cause error) *RetentionError {
	return &RetentionError{
		RetentionDays: days,
		MaxRecords:    maxRecords,
		Cause:         cause,
	}
}
