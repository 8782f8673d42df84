package handler

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cuongbtq/job-title-predictor/internal/api/storage"
	"github.com/cuongbtq/job-title-predictor/internal/prediction"
	"github.com/cuongbtq/job-title-predictor/internal/render"
	"github.com/gin-gonic/gin"
)

// refreshSeconds is how often a pending prediction page reloads itself
const refreshSeconds = 3

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the HTML pages served by the page handlers
func Templates() *template.Template {
	funcs := template.FuncMap{
		"cosine": render.Cosine,
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

// Index handles GET /
func (h *JobHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Description": prediction.DefaultDescription,
	})
}

// SubmitForm handles POST /predict
func (h *JobHandler) SubmitForm(c *gin.Context) {
	description := c.PostForm("description")
	if strings.TrimSpace(description) == "" {
		c.HTML(http.StatusBadRequest, "index.html", gin.H{
			"Description": description,
			"Error":       "Please enter a job description.",
		})
		return
	}

	job, err := h.submitPrediction(c.Request.Context(), description)
	if err != nil {
		var subErr *prediction.SubmissionError
		if errors.As(err, &subErr) {
			c.HTML(http.StatusBadGateway, "index.html", gin.H{
				"Description": description,
				"Error":       "Error submitting job.",
				"Diagnostic":  subErr.Diagnostic,
			})
			return
		}

		h.logger.Error("Failed to submit prediction from form", slog.String("error", err.Error()))
		status := http.StatusInternalServerError
		if errors.Is(err, errSchedulePolling) {
			status = http.StatusServiceUnavailable
		}
		c.HTML(status, "index.html", gin.H{
			"Description": description,
			"Error":       "The prediction could not be started. Please try again.",
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/predictions/"+job.JobID)
}

// PredictionPage handles GET /predictions/:job_id
func (h *JobHandler) PredictionPage(c *gin.Context) {
	jobID := c.Param("job_id")
	if !prediction.ValidID(jobID) {
		c.HTML(http.StatusBadRequest, "prediction.html", gin.H{
			"Error": "Unknown prediction id.",
		})
		return
	}

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		status := http.StatusInternalServerError
		message := "The prediction could not be loaded."
		if errors.Is(err, storage.ErrJobNotFound) {
			status = http.StatusNotFound
			message = "Prediction not found."
		} else {
			h.logger.Error("Failed to load prediction page",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		}
		c.HTML(status, "prediction.html", gin.H{
			"Error": message,
		})
		return
	}

	view := h.toDTO(job)
	data := gin.H{
		"Job": view,
	}
	if !prediction.IsTerminal(job.Status) {
		data["Refresh"] = refreshSeconds
	}

	c.HTML(http.StatusOK, "prediction.html", data)
}
