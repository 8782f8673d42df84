package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/job-title-predictor/internal/worker/domain"
)

// spawnWorkerPool starts one goroutine per concurrency slot. Each goroutine
// polls for one job at a time, so concurrency bounds the polls in flight.
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, fmt.Sprintf("%s-%d", w.workerID, i))
	}

	w.logger.Info("Worker pool started",
		slog.Int("concurrency", w.concurrency),
	)
}

func (w *Worker) workerLoop(ctx context.Context, workerName string) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case t := <-w.jobsChan:
			w.inFlight.Add(1)
			w.handleTask(ctx, workerName, t)
			w.inFlight.Add(-1)
		}
	}
}

// InFlight reports how many poll messages are being processed right now
func (w *Worker) InFlight() int64 {
	return w.inFlight.Load()
}

// handleTask processes one poll message and settles it with the broker.
// Terminal outcomes are acknowledged; everything else is negatively
// acknowledged, with requeue only for retryable failures.
func (w *Worker) handleTask(ctx context.Context, workerName string, t *task) {
	msg := t.msg
	logger := w.logger.With(
		slog.String("worker_name", workerName),
		slog.String("job_id", msg.JobID),
		slog.Uint64("delivery_tag", msg.DeliveryTag),
	)

	err := w.processJob(ctx, msg)
	if err == nil {
		if ackErr := t.acker.Ack(msg.DeliveryTag, false); ackErr != nil {
			logger.Error("Failed to ACK poll message", slog.Any("error", ackErr))
		}
		return
	}

	requeue := w.shouldRequeueJob(err)
	logger.Warn("Poll message not settled",
		slog.Any("error", err),
		slog.Bool("requeue", requeue),
	)

	if nackErr := t.acker.Nack(msg.DeliveryTag, false, requeue); nackErr != nil {
		logger.Error("Failed to NACK poll message", slog.Any("error", nackErr))
	}
}

// shouldRequeueJob reports whether a failed message should go back on the queue
func (w *Worker) shouldRequeueJob(err error) bool {
	switch {
	case errors.Is(err, domain.ErrJobAlreadyClaimed), errors.Is(err, domain.ErrInvalidMessage):
		return false
	default:
		var retryableErr *domain.RetryableError
		return errors.As(err, &retryableErr)
	}
}
