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
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "agency_db", cfg.Database.Database)
			assert.True(t, cfg.Database.AutoMigrate)
			assert.Equal(t, "notifications_exchange", cfg.RabbitMQ.Exchange.Name)
			assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
			assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
			assert.Equal(t, "@every 30s", cfg.Recurrence.Schedule)
			assert.Equal(t, NotificationModeBroker, cfg.Notifications.Mode)
			assert.Equal(t, "agency-api-service", cfg.App.Name)

			// unset values fall back to defaults
			assert.Equal(t, 100, cfg.Recurrence.BatchSize)
			assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
			assert.Equal(t, "notification.created", cfg.Notifications.RoutingKey)

			assert.NoError(t, cfg.ValidateAPIConfig())
			assert.NoError(t, cfg.ValidateWorkerConfig())
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, NotificationModeDirect, cfg.Notifications.Mode)
	assert.Equal(t, "notification.created", cfg.Notifications.RoutingKey)
	assert.Equal(t, 100, cfg.Recurrence.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.Recurrence.LockTTL)
	assert.Equal(t, "@every 1m", cfg.Recurrence.Schedule)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Worker.ShutdownTimeout)
	assert.Equal(t, 2, cfg.Worker.MaxAttempts)
}

func validAPIConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "agency_db",
		},
		Auth:          AuthConfig{JWTSecret: "secret"},
		Notifications: NotificationsConfig{Mode: NotificationModeDirect},
	}
}

func validRabbitMQ() RabbitMQConfig {
	return RabbitMQConfig{
		Host:     "localhost",
		Port:     5672,
		Exchange: ExchangeConfig{Name: "notifications_exchange"},
		Queue:    QueueConfig{Name: "notifications_queue"},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{
			name:   "valid direct mode",
			mutate: func(c *Config) {},
		},
		{
			name: "valid broker mode",
			mutate: func(c *Config) {
				c.Notifications.Mode = NotificationModeBroker
				c.RabbitMQ = validRabbitMQ()
			},
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			errString: "invalid server port",
		},
		{
			name:      "missing database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			errString: "database host is required",
		},
		{
			name:      "invalid database port",
			mutate:    func(c *Config) { c.Database.Port = 0 },
			errString: "invalid database port",
		},
		{
			name:      "missing database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			errString: "database name is required",
		},
		{
			name:      "missing jwt secret",
			mutate:    func(c *Config) { c.Auth.JWTSecret = "" },
			errString: "auth jwt_secret is required",
		},
		{
			name:      "broker mode without rabbitmq",
			mutate:    func(c *Config) { c.Notifications.Mode = NotificationModeBroker },
			errString: "rabbitmq host is required",
		},
		{
			name:      "unknown notifications mode",
			mutate:    func(c *Config) { c.Notifications.Mode = "carrier-pigeon" },
			errString: "invalid notifications mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAPIConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()
			if tt.errString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Host: "localhost", Port: 5432, Database: "agency_db"},
			RabbitMQ: validRabbitMQ(),
			Worker:   WorkerConfig{Concurrency: 2, JobTimeout: time.Second},
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:      "missing exchange",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "missing queue",
			mutate:    func(c *Config) { c.RabbitMQ.Queue.Name = "" },
			errString: "rabbitmq queue name is required",
		},
		{
			name:      "invalid rabbitmq port",
			mutate:    func(c *Config) { c.RabbitMQ.Port = 0 },
			errString: "invalid rabbitmq port",
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			errString: "worker concurrency must be greater than 0",
		},
		{
			name:      "zero job timeout",
			mutate:    func(c *Config) { c.Worker.JobTimeout = 0 },
			errString: "worker job_timeout must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()
			if tt.errString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}
