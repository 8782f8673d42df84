package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cuongbtq/job-title-predictor/internal/blobstore"
	"github.com/cuongbtq/job-title-predictor/internal/cluster"
)

// Config holds dispatcher configuration
type Config struct {
	Logger       *slog.Logger
	Store        blobstore.Store
	Submitter    cluster.Submitter
	InputPrefix  string
	OutputPrefix string
	StagingDir   string
	Cluster      string
	Region       string
	Project      string
	Mode         string

	// NewID overrides id generation, NewID is used when nil
	NewID func() string
}

// Dispatcher uploads job descriptions, submits prediction jobs and waits for their results
type Dispatcher struct {
	logger       *slog.Logger
	store        blobstore.Store
	submitter    cluster.Submitter
	inputPrefix  string
	outputPrefix string
	stagingDir   string
	cluster      string
	region       string
	project      string
	mode         string
	newID        func() string
}

// NewDispatcher creates a new Dispatcher instance
func NewDispatcher(cfg *Config) *Dispatcher {
	newID := cfg.NewID
	if newID == nil {
		newID = NewID
	}

	stagingDir := cfg.StagingDir
	if stagingDir == "" {
		stagingDir = os.TempDir()
	}

	mode := cfg.Mode
	if mode == "" {
		mode = cluster.ModePredict
	}

	return &Dispatcher{
		logger:       cfg.Logger,
		store:        cfg.Store,
		submitter:    cfg.Submitter,
		inputPrefix:  cfg.InputPrefix,
		outputPrefix: cfg.OutputPrefix,
		stagingDir:   stagingDir,
		cluster:      cfg.Cluster,
		region:       cfg.Region,
		project:      cfg.Project,
		mode:         mode,
		newID:        newID,
	}
}

// NewJob creates a job with a fresh id and its derived object names
func (d *Dispatcher) NewJob() *Job {
	return d.JobFor(d.newID(), time.Now())
}

// JobFor rebuilds the job identified by id
func (d *Dispatcher) JobFor(id string, createdAt time.Time) *Job {
	inputObject := InputObjectName(d.inputPrefix, id)
	outputObject := OutputObjectName(d.outputPrefix, id)

	return &Job{
		ID:           id,
		InputObject:  inputObject,
		OutputObject: outputObject,
		InputURI:     d.store.URI(inputObject),
		OutputURI:    d.store.URI(outputObject),
		CreatedAt:    createdAt,
	}
}

// Submit creates a job for description and submits it
func (d *Dispatcher) Submit(ctx context.Context, description string) (*Job, error) {
	job := d.NewJob()
	if err := d.SubmitJob(ctx, job, description); err != nil {
		return job, err
	}
	return job, nil
}

// SubmitJob uploads description as the job input and submits the remote job.
// Every failure is reported as a *SubmissionError; nothing is retried.
func (d *Dispatcher) SubmitJob(ctx context.Context, job *Job, description string) error {
	logger := d.logger.With(slog.String("job_id", job.ID))

	if err := d.uploadInput(ctx, job, description); err != nil {
		logger.Error("Failed to upload job description",
			slog.Any("error", err),
		)
		return &SubmissionError{JobID: job.ID, Diagnostic: err.Error(), Err: err}
	}

	logger.Info("Job description uploaded",
		slog.String("input_uri", job.InputURI),
	)

	err := d.submitter.Submit(ctx, cluster.BatchJob{
		Cluster:   d.cluster,
		Region:    d.region,
		Project:   d.project,
		Mode:      d.mode,
		InputURI:  job.InputURI,
		OutputURI: job.OutputURI,
	})
	if err != nil {
		diagnostic := err.Error()
		var cmdErr *cluster.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Stderr != "" {
			diagnostic = cmdErr.Stderr
		}

		logger.Error("Job submission failed",
			slog.Any("error", err),
		)
		return &SubmissionError{JobID: job.ID, Diagnostic: diagnostic, Err: err}
	}

	logger.Info("Job submitted",
		slog.String("output_uri", job.OutputURI),
	)

	return nil
}

// uploadInput stages the description on local disk, uploads it and removes the staged copy
func (d *Dispatcher) uploadInput(ctx context.Context, job *Job, description string) error {
	staged := filepath.Join(d.stagingDir, "input_"+job.ID+".txt")

	if err := os.WriteFile(staged, []byte(description), 0o600); err != nil {
		return fmt.Errorf("failed to stage job description: %w", err)
	}
	defer func() {
		if err := os.Remove(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("Failed to remove staged job description",
				slog.String("path", staged),
				slog.Any("error", err),
			)
		}
	}()

	f, err := os.Open(staged)
	if err != nil {
		return fmt.Errorf("failed to open staged job description: %w", err)
	}
	defer f.Close()

	if err := d.store.Upload(ctx, job.InputObject, "text/plain", f); err != nil {
		return fmt.Errorf("failed to upload job description: %w", err)
	}

	return nil
}

// AwaitResult polls for the job's result object and parses it once it appears.
// It returns a *TimeoutError after maxAttempts negative checks and a
// *MalformedResultError when the object lacks the expected keys.
func (d *Dispatcher) AwaitResult(ctx context.Context, job *Job, maxAttempts int, interval time.Duration) (*PredictionResult, error) {
	logger := d.logger.With(slog.String("job_id", job.ID))

	logger.Info("Waiting for result",
		slog.String("output_uri", job.OutputURI),
		slog.Int("max_attempts", maxAttempts),
		slog.Duration("interval", interval),
	)

	attempts, err := Poll(ctx, maxAttempts, interval, func(ctx context.Context) (bool, error) {
		return d.store.Exists(ctx, job.OutputObject)
	})
	if errors.Is(err, ErrPollExhausted) {
		logger.Warn("Result not received in time",
			slog.Int("attempts", attempts),
		)
		return nil, &TimeoutError{JobID: job.ID, Attempts: attempts, Interval: interval}
	}
	if err != nil {
		return nil, fmt.Errorf("failed waiting for result of job %s: %w", job.ID, err)
	}

	data, err := d.store.Download(ctx, job.OutputObject)
	if err != nil {
		return nil, fmt.Errorf("failed to download result of job %s: %w", job.ID, err)
	}

	result, err := ParseResult(data)
	if err != nil {
		var malformed *MalformedResultError
		if errors.As(err, &malformed) {
			malformed.JobID = job.ID
		}
		logger.Error("Result is malformed",
			slog.Any("error", err),
		)
		return nil, err
	}

	logger.Info("Result received",
		slog.Int("attempts", attempts),
		slog.String("predicted_title", result.PredictedTitle),
		slog.Int("similar_jobs", len(result.TopSimilar)),
	)

	return result, nil
}
