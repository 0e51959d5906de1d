package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/services"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the completion summary as JSON",
	Long:  "Print one row per stored day with completed and possible habit counts, or the year-to-date grid with --calendar.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logCloser, err := bootstrap()
		if err != nil {
			return err
		}
		defer logCloser.Close()

		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer repo.Close(db)

		svc := services.NewSummaryService(db, loc)

		var out any
		if calendar, _ := cmd.Flags().GetBool("calendar"); calendar {
			out, err = svc.Calendar(cmd.Context())
		} else {
			out, err = svc.Summary(cmd.Context())
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	summaryCmd.Flags().Bool("calendar", false, "print the year-to-date calendar grid instead")
}
