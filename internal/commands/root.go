// Package commands holds the task-platform command line.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"task-platform/backend/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "none"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "task-platform",
	Short: "Task and project management API",
	Long: `task-platform serves a JSON API for projects and tasks owned by
registered users, with email verification and JWT authentication.`,
	SilenceUsage: true,
}

// SetVersion records build metadata reported by --version and the serve log.
func SetVersion(v, c string) {
	version = v
	commit = c
	rootCmd.Version = fmt.Sprintf("%s (%s)", v, c)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	addConfigFlag(rootCmd.PersistentFlags())
	rootCmd.Version = version

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func addConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML config file (overrides "+config.ConfigPathEnv+")")
}

// loadConfig prefers --config, then the environment variable.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadConfigFrom(configPath)
	}
	return config.LoadConfig()
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(os.Stdout, cfg.Log.Level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
