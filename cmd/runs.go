package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vacwatch/vacwatch/internal/utils"
	"github.com/vacwatch/vacwatch/pkg/storage"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent scrape runs (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath, _ := cmd.Flags().GetString("dbpath")
		limit, _ := cmd.Flags().GetInt("limit")

		absPath, err := utils.GetAbsDBPath(dbPath)
		if err != nil {
			return err
		}
		if _, err := os.Stat(absPath); err != nil {
			return fmt.Errorf("database not found: %s", absPath)
		}
		db, err := storage.Open(absPath)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			ts := time.Unix(r.StartedAt, 0).Format("2006-01-02 15:04:05")
			status := "ok"
			if r.Error != "" {
				status = "error: " + r.Error
			}
			fmt.Printf("%s  fetched=%d new=%d updated=%d unchanged=%d %.1fs  %s\n",
				ts, r.TotalFetched, r.NewCount, r.UpdatedCount, r.UnchangedCount, r.DurationSeconds, status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/vacwatch/vacwatch.sqlite)")
	runsCmd.Flags().Int("limit", 50, "Number of recent runs to show")
}
