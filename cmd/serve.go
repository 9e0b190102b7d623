package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vacwatch/vacwatch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vacwatch HTTP API",
	Long: `Start the HTTP API: GET /health, /stats, /vacancies, /vacancies/{id},
/export (CSV) and POST /scrape. Scrape triggers run one at a time; a
second trigger while one is active gets a 409.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath, _ := cmd.Flags().GetString("dbpath")
		listenAddr, _ := cmd.Flags().GetString("listen")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		maxPages, _ := cmd.Flags().GetInt("max-pages")
		details, _ := cmd.Flags().GetBool("details")

		db, cleanup, err := openDB(dbPath)
		if err != nil {
			return err
		}
		defer cleanup()

		orch, err := newOrchestrator(db, pageSize, maxPages, details)
		if err != nil {
			return err
		}

		srv := server.New(db, orch,
			viper.GetString("server.username"),
			viper.GetString("server.password"))
		return srv.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/vacwatch/vacwatch.sqlite)")
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().Int("page-size", 30, "Vacancies fetched per page")
	serveCmd.Flags().Int("max-pages", 20, "Safety cap on pages walked per run")
	serveCmd.Flags().Bool("details", true, "Fetch schedule/requirement/pricing rows for new and updated vacancies")
}
