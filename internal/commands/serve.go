package commands

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"task-platform/backend/internal/clock"
	"task-platform/backend/internal/database"

	"github.com/spf13/cobra"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		app, err := newApplication(cfg, logger, clock.Real())
		if err != nil {
			return err
		}
		defer app.Close()

		if autoMigrate {
			if err := database.Migrate(app.pool.DB); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("starting",
			slog.String("version", version),
			slog.String("commit", commit),
			slog.String("environment", cfg.Server.Environment))
		return app.run(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "migrate the schema before serving")
}
