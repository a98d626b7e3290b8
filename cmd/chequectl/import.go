package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var importFormat string

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import cheques from xlsx, csv or json backup files",
	Long: `Import reads each file and stores the cheques it contains. The format is
taken from the file extension unless --format is given. A file that was
imported before is skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := app.ingestion()
		out := cmd.OutOrStdout()
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			format := importFormat
			if format == "" {
				format = filepath.Ext(path)
			}

			res, err := svc.Import(data, format)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if res.AlreadyImported {
				fmt.Fprintf(out, "%s: already imported\n", path)
				continue
			}
			fmt.Fprintf(out, "%s: %d imported, %d rows skipped, %d duplicates\n",
				path, res.RecordsImported, res.RowsSkipped, res.DuplicatesSkipped)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "input format: xlsx, csv or json")
	rootCmd.AddCommand(importCmd)
}
