package prediction

import (
	"errors"
	"fmt"
	"time"
)

// ErrPollExhausted is returned by Poll when every attempt came back negative
var ErrPollExhausted = errors.New("poll attempts exhausted")

// SubmissionError means the job never reached the cluster.
// Diagnostic holds the submission command's error output for display.
type SubmissionError struct {
	JobID      string
	Diagnostic string
	Err        error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission of job %s failed: %v", e.JobID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// TimeoutError means no result object appeared within the polling budget.
// The remote job itself is left running.
type TimeoutError struct {
	JobID    string
	Attempts int
	Interval time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no result for job %s after %d checks every %s", e.JobID, e.Attempts, e.Interval)
}

// MalformedResultError means the result object exists but does not have the expected shape
type MalformedResultError struct {
	JobID  string
	Reason string
	Err    error
}

func (e *MalformedResultError) Error() string {
	msg := "malformed result"
	if e.JobID != "" {
		msg += " for job " + e.JobID
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResultError) Unwrap() error {
	return e.Err
}
