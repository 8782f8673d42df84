package model

import "time"

// PredictionJob is a row of the prediction_jobs table
type PredictionJob struct {
	JobID          string     `db:"job_id"`
	Description    string     `db:"description"`
	Status         string     `db:"status"`
	InputURI       string     `db:"input_uri"`
	OutputURI      string     `db:"output_uri"`
	PredictedTitle *string    `db:"predicted_title"`
	Result         []byte     `db:"result"`
	ErrorMessage   *string    `db:"error_message"`
	WorkerID       *string    `db:"worker_id"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
	CompletedAt    *time.Time `db:"completed_at"`
}
