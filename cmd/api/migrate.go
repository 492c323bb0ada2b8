package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safecircle/server/internal/config"
	"github.com/safecircle/server/internal/db"
	"github.com/safecircle/server/internal/logger"
)

func newMigrateCommand() *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger.Init(cfg.Environment, cfg.LogLevel, cfg.LogFormat)
			defer logger.Sync()

			database, err := db.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer database.Close()

			if !statusOnly {
				if err := db.Migrate(database); err != nil {
					return fmt.Errorf("failed to run migrations: %w", err)
				}
			}
			return db.MigrationStatus(database)
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "only print migration status")
	return cmd
}
