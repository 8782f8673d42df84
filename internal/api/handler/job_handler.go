package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cuongbtq/job-title-predictor/internal/api/dto"
	"github.com/cuongbtq/job-title-predictor/internal/api/storage"
	"github.com/cuongbtq/job-title-predictor/internal/prediction"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreatePrediction handles POST /api/v1/predictions
// Submits a prediction job and schedules polling for its result
func (h *JobHandler) CreatePrediction(c *gin.Context) {
	var req dto.CreatePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	if strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "description must not be blank",
		})
		return
	}

	job, err := h.submitPrediction(c.Request.Context(), req.Description)
	if err != nil {
		var subErr *prediction.SubmissionError
		switch {
		case errors.As(err, &subErr):
			c.JSON(http.StatusBadGateway, dto.ErrorResponse{
				Error:      "Prediction job submission failed",
				Diagnostic: subErr.Diagnostic,
				JobID:      subErr.JobID,
			})
		case errors.Is(err, errSchedulePolling):
			c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
				Error: "Prediction job submitted but result polling could not be scheduled",
				JobID: job.JobID,
			})
		default:
			h.logger.Error("Failed to create prediction job", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error: "Failed to create prediction job",
			})
		}
		return
	}

	c.JSON(http.StatusAccepted, h.toDTO(job))
}

// GetPrediction handles GET /api/v1/predictions/:job_id
// Returns the job status and, once succeeded, its parsed result
func (h *JobHandler) GetPrediction(c *gin.Context) {
	jobID := c.Param("job_id")

	if !prediction.ValidID(jobID) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "job_id must be 8 lowercase hex characters",
		})
		return
	}

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error: "Prediction job not found",
				JobID: jobID,
			})
			return
		}
		h.logger.Error("Failed to get prediction job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "Failed to get prediction job",
		})
		return
	}

	c.JSON(http.StatusOK, h.toDTO(job))
}

// ListPredictions handles GET /api/v1/predictions
// Lists jobs newest first with optional status filter and cursor pagination
func (h *JobHandler) ListPredictions(c *gin.Context) {
	var req dto.ListPredictionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid query parameters",
		})
		return
	}

	if req.Status != "" && !prediction.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid status filter",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}

	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid cursor",
		})
		return
	}

	jobs, err := h.storage.ListJobs(c.Request.Context(), storage.JobFilter{
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list prediction jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "Failed to list prediction jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	predictions := make([]dto.PredictionJobDTO, len(jobs))
	for i := range jobs {
		predictions[i] = h.toDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListPredictionsResponse{
		Predictions: predictions,
		NextCursor:  nextCursor,
	})
}
