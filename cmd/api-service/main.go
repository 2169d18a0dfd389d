package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/cuongbtq/agency-be/internal/api/handler"
	"github.com/cuongbtq/agency-be/internal/api/router"
	"github.com/cuongbtq/agency-be/internal/bootstrap"
	"github.com/cuongbtq/agency-be/internal/config"
	"github.com/cuongbtq/agency-be/internal/notify"
	"github.com/cuongbtq/agency-be/internal/storage"
	"github.com/cuongbtq/agency-be/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("notifications_mode", cfg.Notifications.Mode),
	)

	dbClient, err := bootstrap.InitPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	appLogger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := storage.Migrate(context.Background(), dbClient.GetDB().DB); err != nil {
			return err
		}
		appLogger.Info("Database migrations applied")
	}

	var (
		publisher    notify.Publisher
		rabbitClient *rabbitmq.Client
	)
	if cfg.Notifications.Mode == config.NotificationModeBroker {
		rabbitClient, err = bootstrap.InitRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()
		publisher = rabbitClient
		appLogger.Info("RabbitMQ connection established")
	}

	redisClient, err := bootstrap.InitRedis(context.Background(), &cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		appLogger.Info("Redis connection established")
	}

	services, err := bootstrap.NewServices(cfg, appLogger.Logger, dbClient, publisher, redisClient)
	if err != nil {
		return err
	}

	r := initRouter(cfg, appLogger.Logger, services, dbClient.HealthCheck, redisClient)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// SIGHUP re-reads the authorization policy without a restart
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

wait:
	for {
		select {
		case err := <-serverErr:
			appLogger.Error("Server failed to start", slog.Any("error", err))
			return err
		case <-reload:
			if err := services.Authz.ReloadPolicy(); err != nil {
				appLogger.Error("Failed to reload authorization policy", slog.Any("error", err))
			}
		case <-quit:
			break wait
		}
	}

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, services *bootstrap.Services, dbHealth func(context.Context) error, redisClient *redis.Client) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	health := func(ctx context.Context) error {
		if err := dbHealth(ctx); err != nil {
			return err
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis health check failed: %w", err)
			}
		}
		return nil
	}

	handlerDeps := &handler.Dependencies{
		Logger:        logger,
		Sessions:      services.Sessions,
		CronSecret:    cfg.Auth.CronSecret,
		Recurrence:    services.Engine,
		Templates:     services.Templates,
		Reassignments: services.Reassignments,
		Notifications: services.Notifications,
		HealthCheck:   health,
	}

	return router.SetupRouter(handlerDeps)
}
