package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"socialscope/pkg/export"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the lookup history to CSV or Excel",
	Example: `  # Export as CSV
  socialscope export --output history.csv

  # Export as a styled Excel workbook
  socialscope export --format xlsx --output history.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}

		records := store.List()
		if len(records) == 0 {
			return fmt.Errorf("nothing to export, the history is empty")
		}

		format := strings.ToLower(exportFormat)
		if format == "" {
			switch filepath.Ext(exportOutput) {
			case ".xlsx":
				format = "xlsx"
			default:
				format = "csv"
			}
		}

		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		switch format {
		case "csv":
			err = export.WriteCSV(f, records)
		case "xlsx", "excel":
			err = export.WriteExcel(f, records)
		default:
			return fmt.Errorf("unknown format %q, expected csv or xlsx", exportFormat)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d profiles to %s\n", len(records), exportOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "output format: csv or xlsx (default: by file extension)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "search_history.csv", "output file path")
}
