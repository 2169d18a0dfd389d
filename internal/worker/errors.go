package worker

import "errors"

// ErrMaxAttemptsExceeded marks a delivery that failed on its final allowed attempt
var ErrMaxAttemptsExceeded = errors.New("max delivery attempts exceeded")

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
