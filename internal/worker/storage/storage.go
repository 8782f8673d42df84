package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/job-title-predictor/internal/prediction"
	"github.com/cuongbtq/job-title-predictor/internal/worker/domain"
	"github.com/jmoiron/sqlx"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimJob moves a SUBMITTED job to AWAITING_RESULT using optimistic locking.
// Only one worker can hold a job; others get ErrJobAlreadyClaimed.
func (s *Storage) ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	query := `
		UPDATE prediction_jobs
		SET status = $1,
		    worker_id = $2,
		    updated_at = NOW()
		WHERE job_id = $3
		  AND status = $4
		RETURNING job_id, created_at
	`

	var job domain.Job
	err := s.db.QueryRowContext(ctx, query, prediction.StatusAwaitingResult, workerID, jobID, prediction.StatusSubmitted).Scan(
		&job.JobID,
		&job.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim job - already claimed or not found",
				slog.String("job_id", jobID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.Status = prediction.StatusAwaitingResult
	job.WorkerID = workerID

	s.logger.Info("Job claimed successfully",
		slog.String("job_id", jobID),
		slog.String("worker_id", workerID),
	)

	return &job, nil
}

// CompleteJob stores the result document of a job that succeeded
func (s *Storage) CompleteJob(ctx context.Context, jobID, predictedTitle string, result []byte) error {
	query := `
		UPDATE prediction_jobs
		SET status = $1,
			predicted_title = $2,
			result = $3,
			error_message = NULL,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE job_id = $4 AND status = $5
	`

	return s.finish(ctx, jobID, prediction.StatusSucceeded, query,
		prediction.StatusSucceeded, predictedTitle, string(result), jobID, prediction.StatusAwaitingResult)
}

// FailJob records a terminal failure such as TIMED_OUT or FAILED
func (s *Storage) FailJob(ctx context.Context, jobID, status, errorMessage string) error {
	if !prediction.IsTerminal(status) {
		return fmt.Errorf("failed to fail job: %s is not a terminal status", status)
	}

	query := `
		UPDATE prediction_jobs
		SET status = $1,
			error_message = $2,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE job_id = $3 AND status = $4
	`

	return s.finish(ctx, jobID, status, query,
		status, errorMessage, jobID, prediction.StatusAwaitingResult)
}

// ReleaseJob hands an unfinished job back so another worker can claim it
func (s *Storage) ReleaseJob(ctx context.Context, jobID string) error {
	query := `
		UPDATE prediction_jobs
		SET status = $1,
			worker_id = NULL,
			updated_at = NOW()
		WHERE job_id = $2 AND status = $3
	`

	return s.finish(ctx, jobID, prediction.StatusSubmitted, query,
		prediction.StatusSubmitted, jobID, prediction.StatusAwaitingResult)
}

func (s *Storage) finish(ctx context.Context, jobID, status, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job status to %s: %w", status, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("failed to update job status to %s: %w", status, domain.ErrJobNotAwaiting)
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)

	return nil
}
