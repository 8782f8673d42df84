package bootstrap

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/job-title-predictor/internal/config"
	"github.com/cuongbtq/job-title-predictor/shared/logger"
	"github.com/cuongbtq/job-title-predictor/shared/postgresql"
	"github.com/cuongbtq/job-title-predictor/shared/rabbitmq"
)

// NewLogger builds the process logger from the logging section
func NewLogger(cfg *config.Config, timeFormat string) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   timeFormat,
		Service:      cfg.App.Name,
	})
}

// DatabaseConfig maps the database section onto the client config
func DatabaseConfig(cfg *config.DatabaseConfig) *postgresql.Config {
	return &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		ConnectTimeout:  cfg.ConnectTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
}

// BrokerConfig maps the rabbitmq section onto the client config
func BrokerConfig(cfg *config.RabbitMQConfig) *rabbitmq.Config {
	return &rabbitmq.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		VHost:    cfg.VHost,
		Topology: rabbitmq.Topology{
			Exchange:           cfg.Exchange.Name,
			ExchangeType:       cfg.Exchange.Type,
			ExchangeDurable:    cfg.Exchange.Durable,
			ExchangeAutoDelete: cfg.Exchange.AutoDelete,
			Queue:              cfg.Queue.Name,
			QueueDurable:       cfg.Queue.Durable,
			QueueAutoDelete:    cfg.Queue.AutoDelete,
			QueueExclusive:     cfg.Queue.Exclusive,
			RoutingKey:         cfg.RoutingKey,
			DeadLetterExchange: cfg.Queue.DeadLetterExchange,
		},
		Dial: rabbitmq.DialPolicy{
			Attempts:  cfg.Connection.RetryAttempts,
			Interval:  cfg.Connection.RetryInterval,
			Heartbeat: cfg.Connection.Heartbeat,
			Timeout:   cfg.Connection.ConnectionTimeout,
		},
		Publish: rabbitmq.PublishPolicy{
			Retries:           cfg.Publish.RetryAttempts,
			RetryDelay:        cfg.Publish.RetryInterval,
			BackoffMultiplier: cfg.Publish.BackoffMultiplier,
		},
	}
}

// Infra is the database and broker pair both services run against
type Infra struct {
	DB     *postgresql.Client
	Broker *rabbitmq.Client
}

// OpenInfra connects to PostgreSQL and RabbitMQ. Nothing is left open on error.
func OpenInfra(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Infra, error) {
	db, err := postgresql.Open(ctx, DatabaseConfig(&cfg.Database), log)
	if err != nil {
		return nil, err
	}

	broker, err := rabbitmq.Dial(ctx, BrokerConfig(&cfg.RabbitMQ), log)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Infra{DB: db, Broker: broker}, nil
}

// Close closes the broker first so no new work arrives while the pool drains
func (i *Infra) Close(log *slog.Logger) {
	if err := i.Broker.Close(); err != nil {
		log.Error("Failed to close RabbitMQ", slog.Any("error", err))
	}
	if err := i.DB.Close(); err != nil {
		log.Error("Failed to close PostgreSQL", slog.Any("error", err))
	}
}
