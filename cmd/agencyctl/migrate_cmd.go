package main

import (
	"github.com/spf13/cobra"

	"github.com/cuongbtq/agency-be/internal/storage"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, appLogger, dbClient, err := opts.connect()
			if err != nil {
				return err
			}
			defer appLogger.Close()
			defer dbClient.Close()

			if err := storage.Migrate(commandContext(cmd), dbClient.GetDB().DB); err != nil {
				return err
			}
			appLogger.Info("Database migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the state of every migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, appLogger, dbClient, err := opts.connect()
			if err != nil {
				return err
			}
			defer appLogger.Close()
			defer dbClient.Close()

			return storage.MigrationStatus(commandContext(cmd), dbClient.GetDB().DB)
		},
	})

	return cmd
}
