package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/job-title-predictor/internal/prediction"
	"github.com/cuongbtq/job-title-predictor/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageSource delivers poll messages
type MessageSource interface {
	Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error)
}

// JobStore records claim and outcome of prediction jobs
type JobStore interface {
	ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error)
	CompleteJob(ctx context.Context, jobID, predictedTitle string, result []byte) error
	FailJob(ctx context.Context, jobID, status, errorMessage string) error
	ReleaseJob(ctx context.Context, jobID string) error
}

// ResultAwaiter waits for the result object of a submitted job
type ResultAwaiter interface {
	JobFor(id string, createdAt time.Time) *prediction.Job
	AwaitResult(ctx context.Context, job *prediction.Job, maxAttempts int, interval time.Duration) (*prediction.PredictionResult, error)
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Source        MessageSource
	Store         JobStore
	Awaiter       ResultAwaiter
	WorkerID      string
	QueueName     string
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
	PollAttempts  int
	PollInterval  time.Duration
}

// task is a decoded poll message and the handle used to settle it
type task struct {
	msg   *domain.JobMessage
	acker amqp.Acknowledger
}

// Worker consumes poll messages and waits for prediction results
type Worker struct {
	logger            *slog.Logger
	source            MessageSource
	storage           JobStore
	awaiter           ResultAwaiter
	workerID          string
	rabbitMQQueueName string
	concurrency       int
	prefetchCount     int
	jobTimeout        time.Duration
	pollAttempts      int
	pollInterval      time.Duration
	jobsChan          chan *task
	inFlight          atomic.Int64
	wg                sync.WaitGroup
	stopChan          chan struct{}
	stopOnce          sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}

	return &Worker{
		logger:            cfg.Logger,
		source:            cfg.Source,
		storage:           cfg.Store,
		awaiter:           cfg.Awaiter,
		workerID:          cfg.WorkerID,
		rabbitMQQueueName: cfg.QueueName,
		concurrency:       concurrency,
		prefetchCount:     prefetch,
		jobTimeout:        cfg.JobTimeout,
		pollAttempts:      cfg.PollAttempts,
		pollInterval:      cfg.PollInterval,
		jobsChan:          make(chan *task),
		stopChan:          make(chan struct{}),
	}
}

// Start consumes poll messages until ctx is canceled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
		slog.Int("poll_attempts", w.pollAttempts),
		slog.Duration("poll_interval", w.pollInterval),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.startMessageDispatcher(ctx, deliveries)
	}()

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")

	return nil
}

// Stop waits for in-flight jobs to be settled
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker",
		slog.Int64("in_flight", w.InFlight()),
	)
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
