package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConnected is returned by publish and consume calls on a closed client
var ErrNotConnected = errors.New("not connected to RabbitMQ")

// Config holds RabbitMQ connection configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string

	Topology Topology
	Dial     DialPolicy
	Publish  PublishPolicy
}

// DialPolicy controls how the initial connection is established
type DialPolicy struct {
	Attempts  int
	Interval  time.Duration
	Heartbeat time.Duration
	Timeout   time.Duration
}

// URI builds the AMQP URI. Credentials are escaped by the amqp package.
func (c *Config) URI() string {
	vhost := c.VHost
	if vhost == "" {
		vhost = "/"
	}

	return amqp.URI{
		Scheme:   "amqp",
		Host:     c.Host,
		Port:     c.Port,
		Username: c.User,
		Password: c.Password,
		Vhost:    vhost,
	}.String()
}

// Client owns one connection and one channel used for both publishing and consuming
type Client struct {
	config    *Config
	conn      *amqp.Connection
	channel   *amqp.Channel
	logger    *slog.Logger
	closeChan chan *amqp.Error
	connected atomic.Bool
}

// Dial connects, declares the topology and returns a ready client.
// Connection attempts stop early when ctx is canceled.
func Dial(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config: config,
		logger: logger,
	}

	if err := client.connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

func (c *Client) connect(ctx context.Context) error {
	amqpConfig := amqp.Config{
		Heartbeat: c.config.Dial.Heartbeat,
		Locale:    "en_US",
	}
	if c.config.Dial.Timeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.Dial.Timeout)
	}

	attempts := max(c.config.Dial.Attempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.conn, err = amqp.DialConfig(c.config.URI(), amqpConfig)
		if err == nil {
			break
		}

		c.logger.Warn("RabbitMQ not reachable",
			slog.String("host", c.config.Host),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("dial canceled after %d attempts: %w", attempt, ctx.Err())
		case <-time.After(c.config.Dial.Interval):
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := c.config.Topology.declare(c.channel); err != nil {
		c.channel.Close()
		c.conn.Close()
		return err
	}

	// the library blocks on an unbuffered notify channel during shutdown
	c.closeChan = c.channel.NotifyClose(make(chan *amqp.Error, 1))
	c.connected.Store(true)

	c.logger.Info("RabbitMQ client ready",
		slog.String("exchange", c.config.Topology.Exchange),
		slog.String("queue", c.config.Topology.Queue),
		slog.String("routing_key", c.config.Topology.RoutingKey),
		slog.String("dead_letter_exchange", c.config.Topology.DeadLetterExchange),
	)

	return nil
}

// NotifyClose reports when the broker closes the channel
func (c *Client) NotifyClose() <-chan *amqp.Error {
	return c.closeChan
}

// IsConnected reports whether the client can still publish and consume
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.conn != nil && !c.conn.IsClosed()
}

// Close closes the channel and the connection
func (c *Client) Close() error {
	if !c.connected.Swap(false) {
		return nil
	}

	if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		c.logger.Warn("Failed to close RabbitMQ channel", slog.Any("error", err))
	}

	if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("failed to close RabbitMQ connection: %w", err)
	}

	c.logger.Info("RabbitMQ connection closed")
	return nil
}
