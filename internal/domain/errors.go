package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when no valid session is present
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks the role or ownership for an action
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned when required input is missing or malformed
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional update lost a race or a request is no longer PENDING
	ErrConflict = errors.New("conflict")
)

// Validationf wraps ErrValidation with a field level message
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with the missing entity
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf wraps ErrConflict with a reason
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
