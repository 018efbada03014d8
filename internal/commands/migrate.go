package commands

import (
	"fmt"
	"log/slog"

	"task-platform/backend/internal/config"
	"task-platform/backend/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		return runMigrate(cfg, logger)
	},
}

func runMigrate(cfg *config.Config, logger *slog.Logger) error {
	pool, err := database.NewDatabasePool(database.PoolConfigFrom(cfg))
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(pool.DB); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	logger.Info("database migrated", slog.String("driver", cfg.Database.Driver))
	return nil
}
