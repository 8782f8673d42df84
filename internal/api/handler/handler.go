package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/job-title-predictor/internal/api/dto"
	"github.com/cuongbtq/job-title-predictor/internal/api/model"
	"github.com/cuongbtq/job-title-predictor/internal/api/storage"
	"github.com/cuongbtq/job-title-predictor/internal/prediction"
)

// storeTimeout bounds status writes and the poll publish after a job reaches the cluster
const storeTimeout = 10 * time.Second

// errSchedulePolling marks a job that was submitted but could not be handed to a worker
var errSchedulePolling = errors.New("failed to schedule result polling")

// Dispatcher creates and submits prediction jobs
type Dispatcher interface {
	NewJob() *prediction.Job
	SubmitJob(ctx context.Context, job *prediction.Job, description string) error
}

// JobStore persists prediction job records
type JobStore interface {
	CreateJob(ctx context.Context, job *model.PredictionJob) error
	UpdateJobStatus(ctx context.Context, jobID, status, errorMessage string) error
	GetJobByID(ctx context.Context, jobID string) (*model.PredictionJob, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.PredictionJob, error)
}

// Broker publishes polling messages
type Broker interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
	IsConnected() bool
}

// HealthChecker reports database connectivity
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger     *slog.Logger
	Dispatcher Dispatcher
	Store      JobStore
	Broker     Broker
	Database   HealthChecker
}

// JobHandler handles prediction HTTP requests
type JobHandler struct {
	logger     *slog.Logger
	dispatcher Dispatcher
	storage    JobStore
	broker     Broker
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:     deps.Logger,
		dispatcher: deps.Dispatcher,
		storage:    deps.Store,
		broker:     deps.Broker,
	}
}

// submitPrediction records a new job, submits it to the cluster and schedules result polling.
// The returned record reflects the last status written, also on error.
func (h *JobHandler) submitPrediction(ctx context.Context, description string) (*model.PredictionJob, error) {
	job := h.dispatcher.NewJob()
	logger := h.logger.With(slog.String("job_id", job.ID))

	record := &model.PredictionJob{
		JobID:       job.ID,
		Description: description,
		Status:      prediction.StatusCreated,
		InputURI:    job.InputURI,
		OutputURI:   job.OutputURI,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.CreatedAt,
	}

	if err := h.storage.CreateJob(ctx, record); err != nil {
		return nil, err
	}

	submitErr := h.dispatcher.SubmitJob(ctx, job, description)

	// once the row exists its status must follow the cluster, even if the client went away
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	if submitErr != nil {
		message := submitErr.Error()
		var subErr *prediction.SubmissionError
		if errors.As(submitErr, &subErr) && subErr.Diagnostic != "" {
			message = subErr.Diagnostic
		}

		if err := h.setStatus(storeCtx, record, prediction.StatusSubmissionFailed, message); err != nil {
			logger.Error("Failed to record submission failure", slog.Any("error", err))
		}
		return record, submitErr
	}

	if err := h.setStatus(storeCtx, record, prediction.StatusSubmitted, ""); err != nil {
		return record, h.failScheduling(storeCtx, record, fmt.Errorf("failed to record submission: %w", err))
	}

	body, err := json.Marshal(prediction.PollMessage{JobID: job.ID})
	if err != nil {
		return record, fmt.Errorf("failed to encode poll message: %w", err)
	}

	if err := h.broker.PublishWithRetry(storeCtx, body, "application/json"); err != nil {
		return record, h.failScheduling(storeCtx, record, fmt.Errorf("failed to publish poll message: %w", err))
	}

	logger.Info("Prediction job submitted",
		slog.String("input_uri", job.InputURI),
		slog.String("output_uri", job.OutputURI),
	)

	return record, nil
}

// failScheduling marks a submitted job that no worker will poll as failed
func (h *JobHandler) failScheduling(ctx context.Context, record *model.PredictionJob, cause error) error {
	h.logger.Error("Failed to schedule result polling",
		slog.String("job_id", record.JobID),
		slog.Any("error", cause),
	)

	if err := h.setStatus(ctx, record, prediction.StatusFailed, errSchedulePolling.Error()); err != nil {
		h.logger.Error("Failed to record scheduling failure",
			slog.String("job_id", record.JobID),
			slog.Any("error", err),
		)
	}

	return fmt.Errorf("%w: %v", errSchedulePolling, cause)
}

// setStatus writes status to the store and mirrors it on record
func (h *JobHandler) setStatus(ctx context.Context, record *model.PredictionJob, status, message string) error {
	err := h.storage.UpdateJobStatus(ctx, record.JobID, status, message)

	record.Status = status
	record.UpdatedAt = time.Now()
	if message != "" {
		record.ErrorMessage = &message
	}

	if err != nil {
		return fmt.Errorf("failed to set status %s: %w", status, err)
	}
	return nil
}

func (h *JobHandler) toDTO(job *model.PredictionJob) dto.PredictionJobDTO {
	out := dto.PredictionJobDTO{
		JobID:       job.JobID,
		Description: job.Description,
		Status:      job.Status,
		InputURI:    job.InputURI,
		OutputURI:   job.OutputURI,
		CreatedAt:   job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   job.UpdatedAt.Format(time.RFC3339),
	}

	if job.PredictedTitle != nil {
		out.PredictedTitle = *job.PredictedTitle
	}
	if job.ErrorMessage != nil {
		out.Error = *job.ErrorMessage
	}
	if job.CompletedAt != nil {
		out.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}

	if len(job.Result) > 0 {
		var result prediction.PredictionResult
		if err := json.Unmarshal(job.Result, &result); err != nil {
			h.logger.Warn("Stored prediction result is unreadable",
				slog.String("job_id", job.JobID),
				slog.Any("error", err),
			)
		} else {
			out.Result = &result
		}
	}

	return out
}
