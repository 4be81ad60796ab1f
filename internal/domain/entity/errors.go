package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrAlreadyLeased indicates a queue entry is currently leased by another worker.
	ErrAlreadyLeased = errors.New("url already leased")

	// ErrInvalidStage indicates a pipeline run's current stage cannot accept the
	// requested transition.
	ErrInvalidStage = errors.New("invalid pipeline stage transition")

	// ErrAlreadyArchived indicates an archive operation was attempted on an
	// article whose raw HTML has already been moved to cold storage.
	ErrAlreadyArchived = errors.New("article already archived")

	// ErrReparseCancelled indicates a reparse job was stopped by its cancellation flag.
	ErrReparseCancelled = errors.New("reparse job cancelled")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
