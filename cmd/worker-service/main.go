package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/job-title-predictor/internal/bootstrap"
	"github.com/cuongbtq/job-title-predictor/internal/config"
	"github.com/cuongbtq/job-title-predictor/internal/worker"
	"github.com/cuongbtq/job-title-predictor/internal/worker/storage"
	"github.com/google/uuid"
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

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.NewLogger(cfg, time.RFC3339)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	workerID := newWorkerID()
	logger := appLogger.With(slog.String("worker_id", workerID))

	logger.Info("Starting worker service",
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Int("concurrency", cfg.Worker.Concurrency),
		slog.Duration("poll_budget", cfg.Polling.Budget()),
	)

	signalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.OpenInfra(signalCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close(logger)

	pipeline, err := bootstrap.NewPipeline(signalCtx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize prediction pipeline: %w", err)
	}
	defer pipeline.Close()

	w := worker.NewWorker(&worker.Config{
		Logger:        logger,
		Source:        infra.Broker,
		Store:         storage.NewStorage(infra.DB.GetDB(), logger),
		Awaiter:       pipeline.Dispatcher,
		WorkerID:      workerID,
		QueueName:     cfg.RabbitMQ.Queue.Name,
		Concurrency:   cfg.Worker.Concurrency,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
		JobTimeout:    cfg.Worker.JobTimeout,
		PollAttempts:  cfg.Polling.MaxAttempts,
		PollInterval:  cfg.Polling.Interval,
	})

	// polls see this cancellation, release their jobs and requeue
	ctx, cancel := context.WithCancel(signalCtx)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case amqpErr := <-infra.Broker.NotifyClose():
		runErr = fmt.Errorf("RabbitMQ channel closed: %v", amqpErr)
		logger.Error("RabbitMQ channel closed by broker", slog.Any("error", amqpErr))
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("worker failed to start: %w", err)
		}
	}
	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Worker stopped gracefully")
	case <-time.After(cfg.Worker.ShutdownTimeout):
		logger.Warn("Worker shutdown timeout exceeded, in-flight jobs stay AWAITING_RESULT",
			slog.Duration("shutdown_timeout", cfg.Worker.ShutdownTimeout),
		)
	}

	return runErr
}

// newWorkerID names this process for job claims and the consumer tag
func newWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
}
