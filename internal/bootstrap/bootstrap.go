// Package bootstrap builds the clients and services shared by the binaries
// from a loaded config.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cuongbtq/agency-be/internal/authz"
	"github.com/cuongbtq/agency-be/internal/config"
	"github.com/cuongbtq/agency-be/internal/notify"
	"github.com/cuongbtq/agency-be/internal/reassignment"
	"github.com/cuongbtq/agency-be/internal/recurrence"
	"github.com/cuongbtq/agency-be/internal/session"
	"github.com/cuongbtq/agency-be/internal/storage"
	"github.com/cuongbtq/agency-be/internal/telemetry"
	"github.com/cuongbtq/agency-be/shared/logger"
	"github.com/cuongbtq/agency-be/shared/postgresql"
	"github.com/cuongbtq/agency-be/shared/rabbitmq"
	"github.com/cuongbtq/agency-be/shared/redislock"
)

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// InitPostgreSQL initializes the PostgreSQL database client
func InitPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// InitRabbitMQ initializes the RabbitMQ client
func InitRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// InitRedis connects the recurrence lock. It returns nil when no address is configured.
func InitRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	return redislock.NewClient(ctx, redislock.Config{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Services are the workflows wired onto one persistence gateway
type Services struct {
	Store         *storage.Store
	Authz         *authz.Service
	Sessions      *session.JWTResolver
	Dispatcher    *notify.Dispatcher
	Engine        *recurrence.Engine
	Templates     *recurrence.TemplateService
	Reassignments *reassignment.Service
	Notifications *notify.Service
}

// NewServices wires the workflows. publisher is used in broker mode and
// redisClient, when set, guards the recurrence cycle.
func NewServices(cfg *config.Config, logger *slog.Logger, pg *postgresql.Client, publisher notify.Publisher, redisClient *redis.Client) (*Services, error) {
	authorizer, err := authz.NewService(authz.Config{
		ModelPath:  cfg.Authz.ModelPath,
		PolicyPath: cfg.Authz.PolicyPath,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authorization: %w", err)
	}

	store := storage.NewStore(pg)

	var emitter notify.Emitter
	switch {
	case cfg.Notifications.Mode == config.NotificationModeBroker && publisher != nil:
		emitter = notify.NewBrokerEmitter(publisher, cfg.Notifications.RoutingKey)
	default:
		emitter = notify.NewStoreEmitter(store)
	}
	dispatcher := notify.NewDispatcher(emitter, logger, telemetry.NotificationsEmitted)

	opts := recurrence.Options{BatchSize: cfg.Recurrence.BatchSize}
	if redisClient != nil {
		locker := redislock.New(redisClient, cfg.Redis.KeyPrefix)
		opts.Lock = recurrence.NewRedisCycleLock(locker, cfg.Recurrence.LockTTL)
	}

	return &Services{
		Store:         store,
		Authz:         authorizer,
		Sessions:      session.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Dispatcher:    dispatcher,
		Engine:        recurrence.NewEngine(recurrence.NewPostgresStore(store), dispatcher, logger, opts),
		Templates:     recurrence.NewTemplateService(store, authorizer),
		Reassignments: reassignment.NewService(reassignment.NewPostgresStore(store), authorizer, dispatcher, logger),
		Notifications: notify.NewService(store, authorizer),
	}, nil
}
