package cluster

import (
	"context"
	"fmt"
)

// ModePredict is the execution mode the remote pipeline runs for a single description
const ModePredict = "predict"

// BatchJob describes one batch job to run on a managed cluster
type BatchJob struct {
	Cluster   string
	Region    string
	Project   string
	Mode      string
	InputURI  string
	OutputURI string
}

// Submitter submits batch jobs to a cluster. Submit returns once the
// cluster accepted or rejected the job; it does not wait for the job to finish.
type Submitter interface {
	Submit(ctx context.Context, job BatchJob) error
}

// CommandError is returned when the submission command exits non-zero
type CommandError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("submission command exited with code %d: %v", e.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
