package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/job-title-predictor/internal/prediction"
	"github.com/cuongbtq/job-title-predictor/internal/worker/domain"
)

// storeTimeout bounds outcome writes, which run even after the worker context is canceled
const storeTimeout = 10 * time.Second

// processJob claims a job, waits for its result and records the terminal outcome.
// A nil return means the message can be acknowledged.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	logger := w.logger.With(
		slog.String("job_id", msg.JobID),
		slog.String("worker_id", w.workerID),
	)

	claimed, err := w.storage.ClaimJob(ctx, msg.JobID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			logger.Warn("Job already claimed, skipping")
			return fmt.Errorf("job already claimed: %w", err)
		}
		logger.Error("Failed to claim job", slog.String("error", err.Error()))
		return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
	}

	job := w.awaiter.JobFor(claimed.JobID, claimed.CreatedAt)

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	result, err := w.awaiter.AwaitResult(jobCtx, job, w.pollAttempts, w.pollInterval)

	// outcome writes must not be cut short by shutdown
	storeCtx, storeCancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer storeCancel()

	if err != nil && ctx.Err() != nil {
		logger.Info("Worker shutting down, releasing job")
		return w.release(storeCtx, job.ID, fmt.Errorf("polling interrupted by shutdown: %w", err))
	}

	if err != nil {
		status, message := outcome(err, w.jobTimeout)
		logger.Warn("Prediction job did not succeed",
			slog.String("status", status),
			slog.String("error", message),
		)

		if failErr := w.storage.FailJob(storeCtx, job.ID, status, message); failErr != nil {
			logger.Error("Failed to record job failure", slog.String("error", failErr.Error()))
			return w.release(storeCtx, job.ID, failErr)
		}
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		if failErr := w.storage.FailJob(storeCtx, job.ID, prediction.StatusFailed, err.Error()); failErr != nil {
			return w.release(storeCtx, job.ID, failErr)
		}
		return nil
	}

	if err := w.storage.CompleteJob(storeCtx, job.ID, result.PredictedTitle, data); err != nil {
		logger.Error("Failed to record job result", slog.String("error", err.Error()))
		return w.release(storeCtx, job.ID, err)
	}

	logger.Info("Prediction job succeeded",
		slog.String("predicted_title", result.PredictedTitle),
		slog.Int("similar_jobs", len(result.TopSimilar)),
	)

	return nil
}

// release returns the job to SUBMITTED so a requeued message can claim it again.
// The result object, if any, stays in storage and is found on the first check.
func (w *Worker) release(ctx context.Context, jobID string, cause error) error {
	if err := w.storage.ReleaseJob(ctx, jobID); err != nil {
		w.logger.Error("Failed to release job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to release job after %v: %w", cause, err)
	}
	return domain.NewRetryableError(cause)
}

// outcome maps an AwaitResult error to the terminal status and message to store
func outcome(err error, jobTimeout time.Duration) (string, string) {
	var timeoutErr *prediction.TimeoutError

	switch {
	case errors.As(err, &timeoutErr):
		return prediction.StatusTimedOut, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return prediction.StatusTimedOut, fmt.Sprintf("no result within job timeout of %s", jobTimeout)
	default:
		// malformed results and storage errors
		return prediction.StatusFailed, err.Error()
	}
}
