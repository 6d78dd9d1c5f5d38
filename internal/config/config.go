package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Logging   LoggingConfig   `yaml:"logging"`
	App       AppConfig       `yaml:"app"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	Messenger MessengerConfig `yaml:"messenger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"DB_HOST"`
	Port            int           `yaml:"port" env:"DB_PORT"`
	User            string        `yaml:"user" env:"DB_USER"`
	Password        string        `yaml:"password" env:"DB_PASSWORD"`
	Database        string        `yaml:"database" env:"DB_NAME"`
	SSLMode         string        `yaml:"sslmode" env:"DB_SSLMODE"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and topology configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host" env:"RABBITMQ_HOST"`
	Port       int              `yaml:"port" env:"RABBITMQ_PORT"`
	User       string           `yaml:"user" env:"RABBITMQ_USER"`
	Password   string           `yaml:"password" env:"RABBITMQ_PASSWORD"`
	VHost      string           `yaml:"vhost" env:"RABBITMQ_VHOST"`
	Exchanges  []ExchangeConfig `yaml:"exchanges"`
	Queues     []QueueConfig    `yaml:"queues"`
	Bindings   []BindingConfig  `yaml:"bindings"`
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
}

// BindingConfig ties a queue to an exchange under a routing key pattern
type BindingConfig struct {
	Queue      string `yaml:"queue"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
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
	PrefetchCount int  `yaml:"prefetch_count"`
	AutoAck       bool `yaml:"auto_ack"`
	Exclusive     bool `yaml:"exclusive"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level" env:"LOG_LEVEL"`
	Format           string `yaml:"format" env:"LOG_FORMAT"`
	Output           string `yaml:"output"`
	EnableCaller     bool   `yaml:"enable_caller"`
	EnableStackTrace bool   `yaml:"enable_stack_trace"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment" env:"APP_ENV"`
}

// TrackerConfig holds the job lifecycle engine settings
type TrackerConfig struct {
	MovingGateSeconds       int           `yaml:"moving_gate_seconds"`
	ArrivedGateSeconds      int           `yaml:"arrived_gate_seconds"`
	AutoStartSeconds        int           `yaml:"auto_start_seconds"`
	AlertInterval           time.Duration `yaml:"alert_interval"`
	MinWorkForNoShow        time.Duration `yaml:"min_work_for_no_show"`
	ExtensionConflictWindow time.Duration `yaml:"extension_conflict_window"`
	OpTimeout               time.Duration `yaml:"op_timeout"`
	WriteTimeout            time.Duration `yaml:"write_timeout"`
	OrderEventsExchange     string        `yaml:"order_events_exchange"`
	OrderEventsQueue        string        `yaml:"order_events_queue"`
	NotifyExchange          string        `yaml:"notify_exchange"`
	MessagingExchange       string        `yaml:"messaging_exchange"`
	MessagingRoutingKey     string        `yaml:"messaging_routing_key"`
	ConsumerTag             string        `yaml:"consumer_tag"`
}

// MessengerConfig holds the outbound messaging service configuration
type MessengerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	MaxMessages     int           `yaml:"max_messages"`
	SendTimeout     time.Duration `yaml:"send_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Endpoint        string        `yaml:"endpoint" env:"MESSENGER_ENDPOINT"`
	APIKey          string        `yaml:"api_key" env:"MESSENGER_API_KEY"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	DefaultLanguage string        `yaml:"default_language"`
	Queue           string        `yaml:"queue"`
	ConsumerTag     string        `yaml:"consumer_tag"`
}

// Load reads and parses the configuration file, then applies
// environment overrides on top of the file values.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	return &config, nil
}

// ValidateTrackerConfig checks the configuration of the tracker service
func (c *Config) ValidateTrackerConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

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

	if c.Tracker.OrderEventsExchange == "" {
		return fmt.Errorf("tracker order_events_exchange is required")
	}

	if c.Tracker.OrderEventsQueue == "" {
		return fmt.Errorf("tracker order_events_queue is required")
	}

	if c.Tracker.NotifyExchange == "" {
		return fmt.Errorf("tracker notify_exchange is required")
	}

	if c.Tracker.MessagingExchange == "" {
		return fmt.Errorf("tracker messaging_exchange is required")
	}

	return nil
}

// ValidateMessengerConfig checks the configuration of the messenger service
func (c *Config) ValidateMessengerConfig() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.Messenger.Concurrency <= 0 {
		return fmt.Errorf("messenger concurrency must be greater than 0")
	}

	if c.Messenger.MaxMessages <= 0 {
		return fmt.Errorf("messenger max_messages must be greater than 0")
	}

	if c.Messenger.SendTimeout <= 0 {
		return fmt.Errorf("messenger send_timeout must be greater than 0")
	}

	if c.Messenger.ShutdownTimeout <= 0 {
		return fmt.Errorf("messenger shutdown_timeout must be greater than 0")
	}

	if c.Messenger.Endpoint == "" {
		return fmt.Errorf("messenger endpoint is required")
	}

	if c.Messenger.Queue == "" {
		return fmt.Errorf("messenger queue is required")
	}

	return nil
}
