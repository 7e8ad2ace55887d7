// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrMissingFile     = errors.New("required file is missing")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrTerminalState   = errors.New("entity is in a terminal state")
	ErrExpired         = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// Infrastructure errors
	ErrInternal = errors.New("internal error")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "drive", "student", "roster"
	Op      string // Operation that failed, e.g., "Apply", "AddPhase"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Drive domain errors
var (
	ErrDriveNotFound      = NewDomainError("drive", "Find", ErrNotFound, "placement drive not found")
	ErrDriveAlreadyExists = NewDomainError("drive", "Create", ErrAlreadyExists, "placement drive already exists")
	ErrDriveClosed        = NewDomainError("drive", "Mutate", ErrTerminalState, "placement drive is completed")
	ErrNotEligible        = NewDomainError("drive", "Apply", ErrForbidden, "student does not meet the eligibility criteria")
	ErrAlreadyApplied     = NewDomainError("drive", "Apply", ErrAlreadyExists, "student has already applied to this drive")
	ErrMissingShortlist   = NewDomainError("drive", "AddPhase", ErrMissingFile, "shortlist file is required for every phase")
	ErrMissingFinal       = NewDomainError("drive", "EndDrive", ErrMissingFile, "final shortlist file is required to end a drive")
	ErrUnknownApplicant   = NewDomainError("drive", "SetStatus", ErrNotFound, "no application exists for this student")
	ErrInvalidPhaseName   = NewDomainError("drive", "AddPhase", ErrInvalidInput, "invalid phase name")
	ErrNoPhases           = NewDomainError("drive", "Shortlist", ErrInvalidState, "drive has no phases yet")
	ErrInvalidDriveStatus = NewDomainError("drive", "UpdateStatus", ErrStateTransition, "invalid drive status transition")
)

// Student directory errors
var (
	ErrStudentNotFound      = NewDomainError("student", "Resolve", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("student", "Create", ErrAlreadyExists, "student already exists")
	ErrInvalidIdentifier    = NewDomainError("student", "Resolve", ErrInvalidInput, "identifier must be an email or registration number")
)

// Roster ingestion errors
var (
	ErrEmptyRoster       = NewDomainError("roster", "Parse", ErrInvalidInput, "no rows could be resolved from a non-empty roster")
	ErrRosterUnreadable  = NewDomainError("roster", "Parse", ErrInvalidFormat, "roster file could not be read as a spreadsheet")
	ErrRosterNoSheet     = NewDomainError("roster", "Parse", ErrInvalidFormat, "roster workbook has no sheets")
	ErrDirectoryTimeout  = NewDomainError("roster", "Resolve", ErrTimeout, "student directory lookup timed out")
	ErrDirectoryDegraded = NewDomainError("roster", "Resolve", ErrServiceUnavailable, "student directory is unavailable")
)

// Notification errors
var (
	ErrNotificationFailed = NewDomainError("notification", "Emit", ErrExternalService, "failed to emit notification")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrMissingFile)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
// ConcurrentModification is the only core error a caller is expected to
// retry automatically; transient directory failures also qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
