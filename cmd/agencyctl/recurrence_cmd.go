package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/agency-be/internal/bootstrap"
	"github.com/cuongbtq/agency-be/internal/recurrence"
)

type runOutput struct {
	Command    string              `json:"command"`
	DurationMS int64               `json:"duration_ms"`
	Result     *recurrence.Summary `json:"result"`
}

func newRecurrenceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurrence",
		Short: "Recurring job tools",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run one spawn cycle now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, appLogger, dbClient, err := opts.connect()
			if err != nil {
				return err
			}
			defer appLogger.Close()
			defer dbClient.Close()

			ctx := commandContext(cmd)

			redisClient, err := bootstrap.InitRedis(ctx, &cfg.Redis)
			if err != nil {
				return fmt.Errorf("failed to initialize redis: %w", err)
			}
			if redisClient != nil {
				defer redisClient.Close()
			}

			// without a publisher notifications are written straight to the table
			services, err := bootstrap.NewServices(cfg, appLogger.Logger, dbClient, nil, redisClient)
			if err != nil {
				return err
			}

			start := time.Now()
			summary, err := services.Engine.CheckAndSpawnRecurringJobs(ctx)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), runOutput{
				Command:    "recurrence run",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     summary,
			})
		},
	})

	return cmd
}
