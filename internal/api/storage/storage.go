package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/job-title-predictor/internal/api/model"
	"github.com/cuongbtq/job-title-predictor/internal/prediction"
	"github.com/cuongbtq/job-title-predictor/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

// ErrJobNotFound is returned when no prediction job has the requested id
var ErrJobNotFound = errors.New("prediction job not found")

const jobColumns = `
	job_id, description, status, input_uri, output_uri,
	predicted_title, result, error_message, worker_id,
	created_at, updated_at, completed_at
`

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

func (s *Storage) CreateJob(ctx context.Context, job *model.PredictionJob) error {
	query := `
		INSERT INTO prediction_jobs (
			job_id, description, status, input_uri,
			output_uri, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.Description,
		job.Status,
		job.InputURI,
		job.OutputURI,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create prediction job: %w", err)
	}

	return nil
}

// UpdateJobStatus moves a job to status. errorMessage is stored when non-empty,
// and completed_at is set once the status is terminal.
func (s *Storage) UpdateJobStatus(ctx context.Context, jobID, status, errorMessage string) error {
	query := `
		UPDATE prediction_jobs
		SET status = $1,
			error_message = NULLIF($2, ''),
			completed_at = $3,
			updated_at = NOW()
		WHERE job_id = $4
	`

	var completedAt *time.Time
	if prediction.IsTerminal(status) {
		now := time.Now()
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx, query, status, errorMessage, completedAt, jobID)
	if err != nil {
		return fmt.Errorf("failed to update prediction job status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrJobNotFound
	}

	return nil
}

func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.PredictionJob, error) {
	var job model.PredictionJob
	query := `SELECT ` + jobColumns + ` FROM prediction_jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get prediction job: %w", err)
	}

	return &job, nil
}

type JobFilter struct {
	Status   string
	PageSize int
	Cursor   *JobCursor
}

type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns up to PageSize+1 jobs, newest first, so callers can tell whether another page exists
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.PredictionJob, error) {
	query := `SELECT ` + jobColumns + ` FROM prediction_jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"

	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.PredictionJob
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list prediction jobs: %w", err)
	}

	return jobs, nil
}
