package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-habit-backend/internal/repo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logCloser, err := bootstrap()
		if err != nil {
			return err
		}
		defer logCloser.Close()

		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer repo.Close(db)

		log.Info().Str("db_driver", cfg.DB.Driver).Msg("schema migrated")
		return nil
	},
}
