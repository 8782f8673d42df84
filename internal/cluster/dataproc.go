package cluster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// DataprocConfig holds the gcloud invocation settings
type DataprocConfig struct {
	Binary    string // path to gcloud, "gcloud" when empty
	ScriptURI string // gs:// URI of the PySpark entry point
}

// DataprocSubmitter submits PySpark jobs with `gcloud dataproc jobs submit pyspark`
type DataprocSubmitter struct {
	binary    string
	scriptURI string
	logger    *slog.Logger
}

// NewDataprocSubmitter creates a new DataprocSubmitter
func NewDataprocSubmitter(cfg *DataprocConfig, logger *slog.Logger) *DataprocSubmitter {
	binary := cfg.Binary
	if binary == "" {
		binary = "gcloud"
	}

	return &DataprocSubmitter{
		binary:    binary,
		scriptURI: cfg.ScriptURI,
		logger:    logger,
	}
}

// Submit runs the gcloud command and waits for it to exit
func (s *DataprocSubmitter) Submit(ctx context.Context, job BatchJob) error {
	args := s.args(job)

	s.logger.Info("Submitting Dataproc job",
		slog.String("cluster", job.Cluster),
		slog.String("region", job.Region),
		slog.String("project", job.Project),
		slog.String("mode", job.Mode),
		slog.String("input", job.InputURI),
		slog.String("output", job.OutputURI),
	)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.logger.Error("Dataproc job submission rejected",
				slog.Int("exit_code", exitErr.ExitCode()),
				slog.String("stderr", stderr.String()),
			)
			return &CommandError{
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
				Err:      err,
			}
		}
		return fmt.Errorf("failed to run %s: %w", s.binary, err)
	}

	s.logger.Debug("Dataproc job submitted",
		slog.String("stdout", stdout.String()),
	)

	return nil
}

// args builds the gcloud argument list; everything after "--" is passed to the script
func (s *DataprocSubmitter) args(job BatchJob) []string {
	return []string{
		"dataproc", "jobs", "submit", "pyspark", s.scriptURI,
		"--cluster", job.Cluster,
		"--region", job.Region,
		"--project", job.Project,
		"--",
		"--mode=" + job.Mode,
		"--input=" + job.InputURI,
		"--output=" + job.OutputURI,
	}
}
