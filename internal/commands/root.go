// Package commands implements the habits command line: the HTTP server and
// the maintenance commands that share its configuration.
package commands

import (
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/config"
	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/sysutil"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// dbPathFlag overrides DB_PATH for every command.
var dbPathFlag string

var rootCmd = &cobra.Command{
	Use:   "habits",
	Short: "Habit tracker backend",
	Long: `habits serves the habit tracker REST API and provides maintenance
commands (schema migration, summary export) over the same database.

Configuration comes from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = v + " (" + c + ", " + d + ")"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "SQLite file (overrides DB_PATH)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(summaryCmd)
}

// bootstrap loads .env and the configuration and installs the global logger.
// The returned closer releases the log file.
func bootstrap() (config.Config, io.Closer, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	cfg.DB.Path = sysutil.FirstNonEmpty(dbPathFlag, cfg.DB.Path)

	closer, err := sysutil.SetupLogger(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, closer, nil
}

// openDB opens the configured store and migrates the schema.
func openDB(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.Open(repo.Options{
		Driver:       cfg.DB.Driver,
		Path:         cfg.DB.Path,
		URL:          cfg.DB.URL,
		LogQueries:   cfg.DB.LogQueries,
		MaxOpenConns: cfg.DB.MaxOpenConn,
		Tracing:      cfg.OTEL.Enabled,
	})
	if err != nil {
		return nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		_ = repo.Close(db)
		return nil, err
	}
	return db, nil
}
