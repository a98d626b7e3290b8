package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chequepro/depositslip/internal/export"
)

var (
	exportFrom   string
	exportTo     string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:       "export <full|updates|range|backup>",
	Short:     "Write an export file",
	Long:      `Export writes a spreadsheet of all cheques, the cheques not yet exported, the cheques dated in a range, or a JSON backup.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{export.KindFull, export.KindUpdates, export.KindRange, export.KindBackup},
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := app.exporter()

		var (
			file *export.File
			err  error
		)
		switch args[0] {
		case export.KindFull:
			file, err = svc.Full()
		case export.KindUpdates:
			file, err = svc.Updates()
		case export.KindRange:
			file, err = svc.DateRange(exportFrom, exportTo)
		case export.KindBackup:
			file, err = svc.Backup()
		}
		if err != nil {
			return err
		}

		path := exportOutput
		if path == "" {
			path = file.Name
		} else if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			path = filepath.Join(path, file.Name)
		}
		if err := os.WriteFile(path, file.Data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d cheques to %s\n", file.Count, path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "first cheque date for range exports (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "last cheque date for range exports (YYYY-MM-DD)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file or directory (default: generated name in the working directory)")
	rootCmd.AddCommand(exportCmd)
}
