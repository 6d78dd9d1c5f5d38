package domain

import "errors"

var (
	// ErrInvalidMessage is returned when a queued message is malformed
	ErrInvalidMessage = errors.New("invalid outbound message")

	// ErrUnknownTemplate is returned for a template key without a registered template
	ErrUnknownTemplate = errors.New("unknown message template")

	// ErrMaxRetriesExceeded is returned when a message has exceeded its retry limit
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

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
