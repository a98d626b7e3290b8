package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chequepro/depositslip/internal/config"
	"github.com/chequepro/depositslip/internal/export"
	"github.com/chequepro/depositslip/internal/ingestion"
	"github.com/chequepro/depositslip/internal/logger"
	"github.com/chequepro/depositslip/internal/repository"
)

var (
	dbPath  string
	verbose bool
)

// store is opened by the root command before any subcommand runs.
type store struct {
	db       *sql.DB
	cfg      *config.Config
	log      logrus.FieldLogger
	cheques  *repository.ChequeRepo
	banks    *repository.BankRepo
	settings *repository.SettingsRepo
	imports  *repository.ImportRepo
}

var app *store

var rootCmd = &cobra.Command{
	Use:   "chequectl",
	Short: "Manage the ChequePro cheque book",
	Long: `chequectl works directly on the ChequePro database.

Example Usage:
  chequectl import cheques.xlsx
  chequectl export updates -o updates.xlsx
  chequectl list --status pending`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return openStore()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.db.Close()
			app = nil
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database (default $DB_PATH or chequepro.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func openStore() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.NewWithOutput(level, os.Stderr)

	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	banks := repository.NewBankRepo(db)
	if _, err := banks.SeedDefaults(); err != nil {
		db.Close()
		return err
	}

	app = &store{
		db:       db,
		cfg:      cfg,
		log:      log,
		cheques:  repository.NewChequeRepo(db),
		banks:    banks,
		settings: repository.NewSettingsRepo(db),
		imports:  repository.NewImportRepo(db),
	}
	return nil
}

func (s *store) ingestion() *ingestion.Service {
	return ingestion.NewService(s.cheques, s.imports, s.log)
}

func (s *store) exporter() *export.Service {
	return export.NewService(s.cheques, s.banks, s.settings, export.Options{
		AutoMarkExported: s.cfg.AutoMarkExported,
		CurrencyLabel:    s.cfg.CurrencyLabel,
	}, s.log)
}
