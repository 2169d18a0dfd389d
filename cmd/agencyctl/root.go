package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cuongbtq/agency-be/internal/bootstrap"
	"github.com/cuongbtq/agency-be/internal/config"
	"github.com/cuongbtq/agency-be/shared/logger"
	"github.com/cuongbtq/agency-be/shared/postgresql"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "agencyctl",
		Short:         "Operator tools for the agency backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load()
		},
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to configuration file")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	cmd.AddCommand(newRecurrenceCmd(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// connect opens the logger and database named by the config
func (o *rootOptions) connect() (*config.Config, *logger.Logger, *postgresql.Client, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, nil, err
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	dbClient, err := bootstrap.InitPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		appLogger.Close()
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, appLogger, dbClient, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
