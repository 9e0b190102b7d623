package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vacwatch/vacwatch/internal/utils"
	"github.com/vacwatch/vacwatch/pkg/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the vacancy snapshot as CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath, _ := cmd.Flags().GetString("dbpath")
		outPath, _ := cmd.Flags().GetString("output")

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

		out := os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		return db.ExportCSV(context.Background(), out)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/vacwatch/vacwatch.sqlite)")
	exportCmd.Flags().StringP("output", "o", "", "Write CSV to this file instead of stdout")
}
