package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultPublishRetries    = 3
	defaultPublishRetryDelay = 100 * time.Millisecond
	defaultBackoffMultiplier = 2.0
)

// PublishPolicy controls retries of a failed publish
type PublishPolicy struct {
	Retries           int
	RetryDelay        time.Duration
	BackoffMultiplier float64
}

// backoff returns the wait before retry number attempt (0-based)
func (p PublishPolicy) backoff(attempt int) time.Duration {
	base := p.RetryDelay
	if base <= 0 {
		base = defaultPublishRetryDelay
	}
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = defaultBackoffMultiplier
	}
	return time.Duration(float64(base) * math.Pow(mult, float64(attempt)))
}

func (p PublishPolicy) retries() int {
	if p.Retries <= 0 {
		return defaultPublishRetries
	}
	return p.Retries
}

// PublishWithRetry publishes a persistent message to the configured exchange,
// retrying with exponential backoff until the policy is spent or ctx is done.
func (c *Client) PublishWithRetry(ctx context.Context, body []byte, contentType string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	policy := c.config.Publish
	retries := policy.retries()

	msg := amqp.Publishing{
		ContentType:  contentType,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = c.channel.PublishWithContext(ctx, c.config.Topology.Exchange, c.config.Topology.RoutingKey, false, false, msg)
		if err == nil {
			c.logger.Debug("Message published",
				slog.String("exchange", c.config.Topology.Exchange),
				slog.Int("attempts", attempt+1),
				slog.Int("body_size", len(body)),
			)
			return nil
		}

		if attempt == retries {
			break
		}

		delay := policy.backoff(attempt)
		c.logger.Warn("Publish failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", retries),
			slog.Duration("retry_after", delay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("publish canceled after %d attempts: %w", attempt+1, ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed to publish message after %d attempts: %w", retries+1, err)
}
