package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/job-title-predictor/internal/api/handler"
	"github.com/cuongbtq/job-title-predictor/internal/api/router"
	"github.com/cuongbtq/job-title-predictor/internal/api/storage"
	"github.com/cuongbtq/job-title-predictor/internal/bootstrap"
	"github.com/cuongbtq/job-title-predictor/internal/config"
	"github.com/cuongbtq/job-title-predictor/migrations"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.NewLogger(cfg, time.RFC3339)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("cluster", cfg.Cluster.Name),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.OpenInfra(ctx, cfg, appLogger.Logger)
	if err != nil {
		return err
	}
	defer infra.Close(appLogger.Logger)

	schema, err := migrations.Schema()
	if err != nil {
		return err
	}
	if err := infra.DB.ApplySchema(ctx, schema); err != nil {
		return err
	}

	pipeline, err := bootstrap.NewPipeline(ctx, cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize prediction pipeline: %w", err)
	}
	defer pipeline.Close()

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.SetupRouter(&handler.Dependencies{
			Logger:     appLogger.Logger,
			Dispatcher: pipeline.Dispatcher,
			Store:      storage.NewStorage(infra.DB),
			Broker:     infra.Broker,
			Database:   infra.DB,
		}),
		ReadTimeout: cfg.Server.ReadTimeout,
		// covers the synchronous cluster submission in POST handlers
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP server listening",
			slog.String("address", srv.Addr),
			slog.Duration("write_timeout", cfg.Server.WriteTimeout),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		appLogger.Info("Shutdown signal received")
	case <-infra.Broker.NotifyClose():
		// publishing is impossible from here on; exit so the supervisor restarts us
		appLogger.Error("RabbitMQ channel closed by broker")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLogger.Info("API service stopped")
	return nil
}
