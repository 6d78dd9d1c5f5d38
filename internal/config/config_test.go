package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "tracking_db", cfg.Database.Database)
				assert.Equal(t, "orders.events", cfg.Tracker.OrderEventsExchange)
				assert.Equal(t, "tracker.order-events", cfg.Tracker.OrderEventsQueue)
				assert.Equal(t, "tracker-service", cfg.App.Name)
				assert.Equal(t, 60, cfg.Tracker.MovingGateSeconds)
				assert.Equal(t, 300, cfg.Tracker.AutoStartSeconds)
				assert.Equal(t, 5*time.Minute, cfg.Tracker.AlertInterval)

				require.Len(t, cfg.RabbitMQ.Exchanges, 3)
				assert.Equal(t, "orders.events", cfg.RabbitMQ.Exchanges[0].Name)
				assert.Equal(t, "topic", cfg.RabbitMQ.Exchanges[0].Type)
				require.Len(t, cfg.RabbitMQ.Bindings, 2)
				assert.Equal(t, "order.#", cfg.RabbitMQ.Bindings[0].RoutingKey)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "env-secret")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Database.Password)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Fields without an override keep the file values
	assert.Equal(t, 5432, cfg.Database.Port)
}

func validTrackerConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "tracking_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
		},
		Tracker: TrackerConfig{
			OrderEventsExchange: "orders.events",
			OrderEventsQueue:    "tracker.order-events",
			NotifyExchange:      "device.signals",
			MessagingExchange:   "customer.messages",
		},
	}
}

func TestConfig_ValidateTrackerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(cfg *Config) { cfg.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(cfg *Config) { cfg.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(cfg *Config) { cfg.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(cfg *Config) { cfg.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(cfg *Config) { cfg.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "empty order events exchange",
			mutate:    func(cfg *Config) { cfg.Tracker.OrderEventsExchange = "" },
			wantErr:   true,
			errString: "order_events_exchange is required",
		},
		{
			name:      "empty order events queue",
			mutate:    func(cfg *Config) { cfg.Tracker.OrderEventsQueue = "" },
			wantErr:   true,
			errString: "order_events_queue is required",
		},
		{
			name:      "empty notify exchange",
			mutate:    func(cfg *Config) { cfg.Tracker.NotifyExchange = "" },
			wantErr:   true,
			errString: "notify_exchange is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTrackerConfig()
			tt.mutate(cfg)

			err := cfg.ValidateTrackerConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func validMessengerConfig() *Config {
	return &Config{
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
		},
		Messenger: MessengerConfig{
			Concurrency:     4,
			MaxMessages:     100,
			SendTimeout:     10 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			Endpoint:        "https://messages.example.com/v1/send",
			Queue:           "messenger.outbound",
		},
	}
}

func TestConfig_ValidateMessengerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:      "zero concurrency",
			mutate:    func(cfg *Config) { cfg.Messenger.Concurrency = 0 },
			wantErr:   true,
			errString: "concurrency must be greater than 0",
		},
		{
			name:      "zero max messages",
			mutate:    func(cfg *Config) { cfg.Messenger.MaxMessages = 0 },
			wantErr:   true,
			errString: "max_messages must be greater than 0",
		},
		{
			name:      "zero send timeout",
			mutate:    func(cfg *Config) { cfg.Messenger.SendTimeout = 0 },
			wantErr:   true,
			errString: "send_timeout must be greater than 0",
		},
		{
			name:      "empty endpoint",
			mutate:    func(cfg *Config) { cfg.Messenger.Endpoint = "" },
			wantErr:   true,
			errString: "endpoint is required",
		},
		{
			name:      "empty queue",
			mutate:    func(cfg *Config) { cfg.Messenger.Queue = "" },
			wantErr:   true,
			errString: "queue is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validMessengerConfig()
			tt.mutate(cfg)

			err := cfg.ValidateMessengerConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateTrackerConfig()
		require.NoError(t, err)
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateTrackerConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateTrackerConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}
