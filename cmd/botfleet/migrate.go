package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgard/botfleet/internal/config"
	"github.com/edgard/botfleet/internal/database"
	"github.com/edgard/botfleet/internal/logger"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.NewLogger(config.DefaultLogLevel, config.DefaultLogJSON)
			slog.SetDefault(log)

			path := dbPath
			if path == "" {
				path = databasePath(*configPath)
			}

			db, err := database.NewDB(path)
			if err != nil {
				log.Error("Failed to migrate database", "path", path, "error", err)
				return err
			}
			database.CloseDB(db)

			log.Info("Database is up to date", "path", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (defaults to the configured database.path)")
	return cmd
}

// databasePath resolves the database location without requiring bot credentials,
// falling back to the environment and then the default.
func databasePath(configPath string) string {
	if cfg, err := config.LoadConfig(configPath); err == nil {
		return cfg.Database.Path
	}
	for _, key := range []string{"BOT_DATABASE_PATH", "DATABASE_PATH"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return config.DefaultDBPath
}
