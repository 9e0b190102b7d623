package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vacwatch/vacwatch/internal/utils"
	"github.com/vacwatch/vacwatch/pkg/storage"
)

var dbPath string

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the vacwatch database",
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath, _ := cmd.Parent().PersistentFlags().GetString("dbpath")
		absPath, err := utils.GetAbsDBPath(dbPath)
		if err != nil {
			return err
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", absPath)
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		// Print schema first
		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, absPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, absPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints statistics about the vacancies in the database.",
	Long:  "Prints statistics about the vacancies in the database.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath, _ := cmd.Parent().PersistentFlags().GetString("dbpath")
		absPath, err := utils.GetAbsDBPath(dbPath)
		if err != nil {
			return err
		}

		db, err := storage.Open(absPath)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("database file not found: %s", absPath)
			}
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(context.Background())
		if err != nil {
			return err
		}

		if stats.TotalVacancies == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		fmt.Printf("Total vacancies: %d\n", stats.TotalVacancies)
		fmt.Printf("Avg DOCTOR rate: %.0f SEK\n", stats.AvgDoctorRate)
		fmt.Printf("Avg NURSE rate:  %.0f SEK\n\n", stats.AvgNurseRate)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "PROFESSION\tVACANCIES\t")
		for _, p := range sortedKeys(stats.ByProfession) {
			fmt.Fprintf(w, "%s\t%d\t\n", p, stats.ByProfession[p])
		}
		fmt.Fprintln(w, " \t \t")
		fmt.Fprintln(w, "REGION\tVACANCIES\t")
		for _, r := range sortedKeys(stats.ByRegion) {
			fmt.Fprintf(w, "%s\t%d\t\n", r, stats.ByRegion[r])
		}
		w.Flush()

		if len(stats.RecentRuns) > 0 {
			fmt.Println("\nRecent runs:")
			for _, r := range stats.RecentRuns {
				fmt.Printf("  fetched=%d new=%d updated=%d unchanged=%d\n",
					r.TotalFetched, r.NewCount, r.UpdatedCount, r.UnchangedCount)
			}
		}

		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(statsCmd)
	dbCmd.PersistentFlags().StringVar(&dbPath, "dbpath", "", "Path to SQLite DB file (default: ~/.config/vacwatch/vacwatch.sqlite)")
}
