package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one scrape of the Bemlo vacancy listings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath, _ := cmd.Flags().GetString("dbpath")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		maxPages, _ := cmd.Flags().GetInt("max-pages")
		details, _ := cmd.Flags().GetBool("details")
		asJSON, _ := cmd.Flags().GetBool("json")

		db, cleanup, err := openDB(dbPath)
		if err != nil {
			return err
		}
		defer cleanup()

		orch, err := newOrchestrator(db, pageSize, maxPages, details)
		if err != nil {
			return err
		}

		sum, runErr := orch.Run(context.Background())
		if sum != nil {
			if asJSON {
				out, err := json.MarshalIndent(sum, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
			} else {
				fmt.Printf("fetched=%d new=%d updated=%d unchanged=%d duration=%.1fs\n",
					sum.TotalFetched, sum.NewCount, sum.UpdatedCount, sum.UnchangedCount, sum.DurationSeconds)
				for _, v := range sum.NewVacancies {
					fmt.Printf("new      %s  %s  %s (%s)  %s\n", v.ID, v.Title, v.Municipality, v.Region, v.URL)
				}
				for _, u := range sum.Updates {
					fmt.Printf("updated  %s  %s  %v\n", u.ID, u.Title, u.Changes)
				}
			}
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/vacwatch/vacwatch.sqlite)")
	scrapeCmd.Flags().Int("page-size", 30, "Vacancies fetched per page")
	scrapeCmd.Flags().Int("max-pages", 20, "Safety cap on pages walked per run")
	scrapeCmd.Flags().Bool("details", true, "Fetch schedule/requirement/pricing rows for new and updated vacancies")
	scrapeCmd.Flags().Bool("json", false, "Print the run summary as JSON")
}
