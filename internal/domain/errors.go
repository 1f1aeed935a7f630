package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrUnavailable  = errors.New("service unavailable")
)

// Specific errors.
var (
	ErrRouteNotFound    = fmt.Errorf("route: %w", ErrNotFound)
	ErrJobNotFound      = fmt.Errorf("export job: %w", ErrNotFound)
	ErrRadiusOutOfRange = fmt.Errorf("radius: %w", ErrInvalidInput)
	ErrStoreUnavailable = fmt.Errorf("spatial store: %w", ErrUnavailable)
	ErrQueueFull        = fmt.Errorf("export queue full: %w", ErrUnavailable)
)

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string // Field that failed validation
	Value      any    // The invalid value
	Constraint string // The constraint that was violated
	Message    string // Human-readable message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// QueryError represents an error during a spatial store query.
type QueryError struct {
	Op  string // Operation that failed (get_route, amenities_near_route, ...)
	Key string // Route ID or tile address, if applicable
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("query error during %s for %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("query error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// StorageError represents an error during file storage operations.
type StorageError struct {
	Operation string // Operation that failed (put, get, exists)
	Key       string // Object key
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error during %s for %s: %v", e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// JobError represents a terminal worker-side failure. The cause string is
// what status polling reports to callers.
type JobError struct {
	JobID string // Export job identifier
	Stage string // Stage that failed (search, encode, store)
	Err   error  // Underlying error
}

// Error implements the error interface.
func (e *JobError) Error() string {
	return fmt.Sprintf("job %s failed during %s: %v", e.JobID, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *JobError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}
