package dto

import "github.com/cuongbtq/job-title-predictor/internal/prediction"

type CreatePredictionRequest struct {
	Description string `json:"description" binding:"required"`
}

type ListPredictionsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListPredictionsResponse struct {
	Predictions []PredictionJobDTO `json:"predictions"`
	NextCursor  string             `json:"next_cursor,omitempty"`
}

type PredictionJobDTO struct {
	JobID          string                       `json:"job_id"`
	Description    string                       `json:"description"`
	Status         string                       `json:"status"`
	InputURI       string                       `json:"input_uri"`
	OutputURI      string                       `json:"output_uri"`
	PredictedTitle string                       `json:"predicted_title,omitempty"`
	Result         *prediction.PredictionResult `json:"result,omitempty"`
	Error          string                       `json:"error,omitempty"`
	CreatedAt      string                       `json:"created_at"`
	UpdatedAt      string                       `json:"updated_at"`
	CompletedAt    string                       `json:"completed_at,omitempty"`
}

type ErrorResponse struct {
	Error      string `json:"error"`
	Diagnostic string `json:"diagnostic,omitempty"`
	JobID      string `json:"job_id,omitempty"`
}
