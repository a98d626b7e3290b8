package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chequepro/depositslip/internal/api"
	"github.com/chequepro/depositslip/internal/config"
	"github.com/chequepro/depositslip/internal/export"
	"github.com/chequepro/depositslip/internal/ingestion"
	"github.com/chequepro/depositslip/internal/logger"
	"github.com/chequepro/depositslip/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel)

	log.Infof("Initializing database at %s", cfg.DBPath)
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	// Create repositories.
	chequeRepo := repository.NewChequeRepo(db)
	bankRepo := repository.NewBankRepo(db)
	settingsRepo := repository.NewSettingsRepo(db)
	importRepo := repository.NewImportRepo(db)

	if seeded, err := bankRepo.SeedDefaults(); err != nil {
		log.Fatalf("Failed to seed banks: %v", err)
	} else if seeded {
		log.Info("Seeded default bank directory")
	}
	for key, v := range map[string]string{
		repository.SettingDepositBankName:      cfg.DepositBankName,
		repository.SettingDepositAccountHolder: cfg.DepositAccountHolder,
		repository.SettingDepositAccountNumber: cfg.DepositAccountNumber,
	} {
		if err := settingsRepo.SetDefault(key, v); err != nil {
			log.Fatalf("Failed to store default %s: %v", key, err)
		}
	}

	// Create services.
	ingestionSvc := ingestion.NewService(chequeRepo, importRepo, log)
	exportSvc := export.NewService(chequeRepo, bankRepo, settingsRepo, export.Options{
		AutoMarkExported: cfg.AutoMarkExported,
		CurrencyLabel:    cfg.CurrencyLabel,
	}, log)

	// Seed cheques if DB is empty.
	count, err := chequeRepo.Count()
	if err != nil {
		log.Fatalf("Failed to count cheques: %v", err)
	}
	if count == 0 {
		log.Info("Database is empty, seeding cheques")
		if err := seedCheques(ingestionSvc, cfg.SeedPath, log); err != nil {
			log.WithError(err).Warn("Failed to seed cheques")
		}
	} else {
		log.Infof("Database already has %d cheques, skipping seed", count)
	}

	router := api.NewRouter(api.Deps{
		Cheques:       chequeRepo,
		Banks:         bankRepo,
		Settings:      settingsRepo,
		Imports:       importRepo,
		Ingestion:     ingestionSvc,
		Export:        exportSvc,
		Log:           log,
		CurrencyLabel: cfg.CurrencyLabel,
		DashboardTTL:  cfg.DashboardCacheTTL,
		RateLimitRPS:  cfg.RateLimitRPS,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("ChequePro deposit slip service")
		log.Infof("Listening on http://localhost:%s", cfg.Port)
		log.Infof("API base: http://localhost:%s/api/v1", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

// seedCheques loads the JSON seed file through the regular import path so a
// restarted server does not seed twice.
func seedCheques(svc *ingestion.Service, path string, log logrus.FieldLogger) error {
	candidates := []string{path}

	// Also try to find relative to the executable.
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, path),
			filepath.Join(dir, "..", "..", path),
		)
	}

	var (
		data    []byte
		loadErr error
	)
	for _, p := range candidates {
		data, loadErr = os.ReadFile(p)
		if loadErr == nil {
			log.Infof("Loaded seed cheques from %s", p)
			break
		}
	}
	if loadErr != nil {
		return loadErr
	}

	result, err := svc.Import(data, ingestion.FormatJSON)
	if err != nil {
		return err
	}
	log.Infof("Seeded %d cheques", result.RecordsImported)
	return nil
}
