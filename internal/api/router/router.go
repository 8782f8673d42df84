package router

import (
	"context"
	"net/http"
	"time"

	"github.com/cuongbtq/job-title-predictor/internal/api/handler"
	"github.com/gin-gonic/gin"
)

const serviceName = "job-title-predictor-api"

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.SetHTMLTemplate(handler.Templates())

	r.GET("/health", healthHandler(deps))

	jobHandler := handler.NewJobHandler(deps)

	// HTML form
	r.GET("/", jobHandler.Index)
	r.POST("/predict", jobHandler.SubmitForm)
	r.GET("/predictions/:job_id", jobHandler.PredictionPage)

	v1 := r.Group("/api/v1")
	{
		predictions := v1.Group("/predictions")
		{
			// POST /api/v1/predictions - Submit a prediction job
			predictions.POST("", jobHandler.CreatePrediction)

			// GET /api/v1/predictions - List prediction jobs with pagination
			predictions.GET("", jobHandler.ListPredictions)

			// GET /api/v1/predictions/:job_id - Get a prediction job and its result
			predictions.GET("/:job_id", jobHandler.GetPrediction)
		}
	}

	return r
}

func healthHandler(deps *handler.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := gin.H{
			"database": "ok",
			"rabbitmq": "ok",
		}
		healthy := true

		if err := deps.Database.HealthCheck(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		}

		if !deps.Broker.IsConnected() {
			checks["rabbitmq"] = "not connected"
			healthy = false
		}

		status := http.StatusOK
		state := "healthy"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "unhealthy"
		}

		c.JSON(status, gin.H{
			"status":  state,
			"service": serviceName,
			"checks":  checks,
		})
	}
}
