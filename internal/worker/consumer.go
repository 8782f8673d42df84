package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/job-title-predictor/internal/prediction"
	"github.com/cuongbtq/job-title-predictor/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// setupConsumer starts consuming with QoS bounded by the prefetch count
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	// consumer tag is the worker id so deliveries can be traced in the management UI
	deliveries, err := w.source.Consume(w.workerID, w.prefetchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.String("queue", w.rabbitMQQueueName),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	return deliveries, nil
}

// decodeMessage extracts the job id of a poll message
func decodeMessage(delivery amqp.Delivery) (*domain.JobMessage, error) {
	var msg prediction.PollMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}

	if !prediction.ValidID(msg.JobID) {
		return nil, fmt.Errorf("%w: job_id %q is not 8 lowercase hex characters", domain.ErrInvalidMessage, msg.JobID)
	}

	return &domain.JobMessage{
		JobID:       msg.JobID,
		DeliveryTag: delivery.DeliveryTag,
	}, nil
}

// startMessageDispatcher hands decoded deliveries to the pool until the
// delivery channel closes or the worker stops
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}
			if !w.dispatch(ctx, delivery) {
				return
			}
		}
	}
}

// dispatch reports false when the worker is shutting down
func (w *Worker) dispatch(ctx context.Context, delivery amqp.Delivery) bool {
	msg, err := decodeMessage(delivery)
	if err != nil {
		w.logger.Error("Rejecting invalid poll message",
			slog.Any("error", err),
			slog.String("body", string(delivery.Body)),
		)
		// a malformed message never becomes valid; the broker dead-letters it when configured
		w.nack(delivery, false)
		return true
	}

	if delivery.Redelivered {
		w.logger.Info("Poll message redelivered",
			slog.String("job_id", msg.JobID),
		)
	}

	select {
	case w.jobsChan <- &task{msg: msg, acker: delivery.Acknowledger}:
		return true
	case <-ctx.Done():
		w.nack(delivery, true)
		return false
	}
}

func (w *Worker) nack(delivery amqp.Delivery, requeue bool) {
	if err := delivery.Nack(false, requeue); err != nil {
		w.logger.Error("Failed to NACK poll message",
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
			slog.Bool("requeue", requeue),
			slog.Any("error", err),
		)
	}
}
