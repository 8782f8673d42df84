package domain

import "errors"

var (
	// ErrJobAlreadyClaimed is returned when a job is missing or no longer SUBMITTED
	ErrJobAlreadyClaimed = errors.New("job not found or not in SUBMITTED status")

	// ErrJobNotAwaiting is returned when recording an outcome for a job this worker no longer holds
	ErrJobNotAwaiting = errors.New("job not in AWAITING_RESULT status")

	// ErrInvalidMessage is returned when a poll message cannot be decoded or names an invalid job id
	ErrInvalidMessage = errors.New("invalid poll message")
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
