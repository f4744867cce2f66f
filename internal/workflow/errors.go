package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a decision targets an instance
	// that is no longer pending (stale client view or a lost race)
	ErrInvalidState = errors.New("approval instance is not pending")

	// ErrConflict is returned on a duplicate creation attempt
	ErrConflict = errors.New("approval instance already exists")

	// ErrNoWorkflow is returned when a company has no usable approval
	// rule. This is a setup fault, not a validation fault: the caller
	// cannot fix it by resubmitting different data.
	ErrNoWorkflow = errors.New("no approval workflow configured for company")
)

// ValidationError reports malformed or missing caller input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// UnauthorizedError reports a role mismatch on a pending step. It
// carries the required role for user-facing messaging.
type UnauthorizedError struct {
	RequiredRole string
	ActualRole   string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("requires role %s, acting user holds %s", e.RequiredRole, e.ActualRole)
}
