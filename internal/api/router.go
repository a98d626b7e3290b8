package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/chequepro/depositslip/internal/export"
	"github.com/chequepro/depositslip/internal/ingestion"
	"github.com/chequepro/depositslip/internal/logger"
	"github.com/chequepro/depositslip/internal/repository"
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	Cheques   *repository.ChequeRepo
	Banks     *repository.BankRepo
	Settings  *repository.SettingsRepo
	Imports   *repository.ImportRepo
	Ingestion *ingestion.Service
	Export    *export.Service

	Log           logrus.FieldLogger
	CurrencyLabel string
	DashboardTTL  time.Duration
	RateLimitRPS  int
	Now           func() time.Time
}

// NewRouter creates the Chi router with all API routes mounted. The deposit
// slip being assembled lives for as long as the router does.
func NewRouter(d Deps) http.Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.DashboardTTL <= 0 {
		d.DashboardTTL = 30 * time.Second
	}

	h := &Handlers{
		cheques:       d.Cheques,
		banks:         d.Banks,
		settings:      d.Settings,
		imports:       d.Imports,
		ingestionSvc:  d.Ingestion,
		exportSvc:     d.Export,
		log:           d.Log,
		currencyLabel: d.CurrencyLabel,
		now:           d.Now,
		cache:         cache.New(d.DashboardTTL, 2*d.DashboardTTL),
		validate:      newValidator(),
	}
	h.slip = newSlipSession(d.Cheques, d.Settings, d.Log, d.Now)

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(rateLimit(d.RateLimitRPS))
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Cheques.
		r.Get("/cheques", h.ListCheques)
		r.Post("/cheques", h.CreateCheque)
		r.Post("/cheques/bulk/exported", h.BulkMarkExported)
		r.Post("/cheques/bulk/delete", h.BulkDelete)
		r.Get("/cheques/{id}", h.GetCheque)
		r.Put("/cheques/{id}", h.UpdateCheque)
		r.Delete("/cheques/{id}", h.DeleteCheque)

		// Bank directory.
		r.Get("/banks", h.ListBanks)
		r.Post("/banks/{bank}/branches", h.AddBranch)

		// Dashboard.
		r.Get("/dashboard", h.GetDashboard)

		// Import and export.
		r.Post("/imports", h.ImportCheques)
		r.Get("/imports", h.ListImports)
		r.Get("/exports/{kind}", h.Export)

		// Deposit slip.
		r.Route("/deposit-slip", func(r chi.Router) {
			r.Get("/", h.GetDepositSlip)
			r.Put("/header", h.SetSlipHeader)
			r.Post("/lines", h.AddSlipLine)
			r.Patch("/lines/{index}", h.UpdateSlipLine)
			r.Delete("/lines/{index}", h.DeleteSlipLine)
			r.Post("/lines/{index}/lookup", h.LookupSlipLine)
			r.Post("/select/{chequeID}", h.SelectForDeposit)
			r.Post("/finalize", h.FinalizeSlip)
			r.Post("/reset", h.ResetSlip)
		})
	})

	return r
}
