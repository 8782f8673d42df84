package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Storage backends
const (
	StorageBackendGCS  = "gcs"
	StorageBackendFile = "file"
)

// Defaults applied by Load when a value is missing
const (
	DefaultPollMaxAttempts = 30
	DefaultPollInterval    = 3 * time.Second
	DefaultInputPrefix     = "job-description-inputs"
	DefaultOutputPrefix    = "job-results"
	DefaultMode            = "predict"
	DefaultGcloudBinary    = "gcloud"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Worker   WorkerConfig   `yaml:"worker"`
	Storage  StorageConfig  `yaml:"storage"`
	Cluster  ClusterConfig  `yaml:"cluster"`
	Polling  PollingConfig  `yaml:"polling"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`

	// DeadLetterExchange receives poll messages rejected without requeue
	DeadLetterExchange string `yaml:"dead_letter_exchange"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Backend      string            `yaml:"backend"` // gcs or file
	Project      string            `yaml:"project"`
	Bucket       string            `yaml:"bucket"`
	Root         string            `yaml:"root"` // directory for the file backend
	InputPrefix  string            `yaml:"input_prefix"`
	OutputPrefix string            `yaml:"output_prefix"`
	StagingDir   string            `yaml:"staging_dir"`
	Credentials  CredentialsConfig `yaml:"credentials"`
}

// CredentialsConfig says where the storage service account key lives
type CredentialsConfig struct {
	KeyringService string `yaml:"keyring_service"`
	KeyringAccount string `yaml:"keyring_account"`
	File           string `yaml:"file"`
}

// ClusterConfig holds batch job submission settings
type ClusterConfig struct {
	Name      string `yaml:"name"`
	Region    string `yaml:"region"`
	Project   string `yaml:"project"`
	ScriptURI string `yaml:"script_uri"`
	Binary    string `yaml:"binary"`
	Mode      string `yaml:"mode"`
}

// PollingConfig holds the result polling budget
type PollingConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Interval    time.Duration `yaml:"interval"`
}

// Budget returns the longest time a poll can take
func (p PollingConfig) Budget() time.Duration {
	return time.Duration(p.MaxAttempts) * p.Interval
}

// Load reads and parses the configuration file.
// ${VAR} references are expanded from the environment before parsing.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Polling.MaxAttempts == 0 {
		c.Polling.MaxAttempts = DefaultPollMaxAttempts
	}
	if c.Polling.Interval == 0 {
		c.Polling.Interval = DefaultPollInterval
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageBackendGCS
	}
	if c.Storage.InputPrefix == "" {
		c.Storage.InputPrefix = DefaultInputPrefix
	}
	if c.Storage.OutputPrefix == "" {
		c.Storage.OutputPrefix = DefaultOutputPrefix
	}
	if c.Storage.StagingDir == "" {
		c.Storage.StagingDir = os.TempDir()
	}
	if c.Storage.Project == "" {
		c.Storage.Project = c.Cluster.Project
	}
	if c.Cluster.Mode == "" {
		c.Cluster.Mode = DefaultMode
	}
	if c.Cluster.Binary == "" {
		c.Cluster.Binary = DefaultGcloudBinary
	}
	if c.Worker.JobTimeout == 0 {
		c.Worker.JobTimeout = c.Polling.Budget() + 30*time.Second
	}
}

// Validate checks the settings every binary needs to submit and await jobs
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageBackendGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required")
		}
	case StorageBackendFile:
		if c.Storage.Root == "" {
			return fmt.Errorf("storage root is required for the file backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %q (must be %q or %q)", c.Storage.Backend, StorageBackendGCS, StorageBackendFile)
	}

	if c.Cluster.Name == "" {
		return fmt.Errorf("cluster name is required")
	}

	if c.Cluster.Region == "" {
		return fmt.Errorf("cluster region is required")
	}

	if c.Cluster.Project == "" {
		return fmt.Errorf("cluster project is required")
	}

	if c.Cluster.ScriptURI == "" {
		return fmt.Errorf("cluster script_uri is required")
	}

	if c.Polling.MaxAttempts <= 0 {
		return fmt.Errorf("polling max_attempts must be greater than 0")
	}

	if c.Polling.Interval <= 0 {
		return fmt.Errorf("polling interval must be greater than 0")
	}

	return nil
}

// ValidateAPIConfig checks the api-service configuration
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateInfrastructure(); err != nil {
		return err
	}

	return c.Validate()
}

// ValidateWorkerConfig checks the worker-service configuration
func (c *Config) ValidateWorkerConfig() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.JobTimeout < c.Polling.Budget() {
		return fmt.Errorf("worker job_timeout (%s) must cover the polling budget (%s)", c.Worker.JobTimeout, c.Polling.Budget())
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if err := c.validateInfrastructure(); err != nil {
		return err
	}

	return c.Validate()
}

func (c *Config) validateInfrastructure() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}
