package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed job errors below
var (
	ErrExecutionFailed = errors.New("execution failed")
	ErrNoResults       = errors.New("no results")
	ErrCountMismatch   = errors.New("count mismatch")

	// ErrInvalidRequest marks input rejected before any job is created
	ErrInvalidRequest = errors.New("invalid request")
)

// ExecutionFailedError is returned when the wrapped job exits with a non-zero status
type ExecutionFailedError struct {
	URL    string
	Status int
}

// Error implements the error interface.
func (e *ExecutionFailedError) Error() string {
	return fmt.Sprintf("gallery-dl did not exit with 0 for %s (status %d), check the logs", e.URL, e.Status)
}

// Is allows for error checking with errors.Is().
func (e *ExecutionFailedError) Is(target error) bool {
	if target == ErrExecutionFailed {
		return true
	}
	_, ok := target.(*ExecutionFailedError)
	return ok
}

// NoResultsError is returned when a job emitted no URL messages
type NoResultsError struct {
	URL string
}

// Error implements the error interface.
func (e *NoResultsError) Error() string {
	return fmt.Sprintf("no URL messages were extracted from %s, does the post exist?", e.URL)
}

// Is allows for error checking with errors.Is().
func (e *NoResultsError) Is(target error) bool {
	if target == ErrNoResults {
		return true
	}
	_, ok := target.(*NoResultsError)
	return ok
}

// CountMismatchError is returned when recorded output paths and URL messages diverge.
// It indicates a desynchronization between the adapter and gallery-dl and is never retried.
type CountMismatchError struct {
	Paths int
	URLs  int
}

// Error implements the error interface.
func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("recorded %d output paths but extracted %d URL messages", e.Paths, e.URLs)
}

// Is allows for error checking with errors.Is().
func (e *CountMismatchError) Is(target error) bool {
	if target == ErrCountMismatch {
		return true
	}
	_, ok := target.(*CountMismatchError)
	return ok
}
