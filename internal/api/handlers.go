package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/chequepro/depositslip/internal/currency"
	"github.com/chequepro/depositslip/internal/domain"
	"github.com/chequepro/depositslip/internal/export"
	"github.com/chequepro/depositslip/internal/ingestion"
	"github.com/chequepro/depositslip/internal/logger"
	"github.com/chequepro/depositslip/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	cheques      *repository.ChequeRepo
	banks        *repository.BankRepo
	settings     *repository.SettingsRepo
	imports      *repository.ImportRepo
	ingestionSvc *ingestion.Service
	exportSvc    *export.Service
	slip         *slipSession

	log           logrus.FieldLogger
	currencyLabel string
	now           func() time.Time
	cache         *cache.Cache
	validate      *validator.Validate
}

const dashboardCacheKey = "dashboard"

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("[api] encode error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyDeposited),
		errors.Is(err, domain.ErrDuplicateBranch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrNothingSelected),
		errors.Is(err, domain.ErrLineOutOfRange),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, domain.ErrNothingToExport),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrAmountTooLarge):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with the status it maps to. Unexpected errors
// are logged and reported without detail.
func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context(), h.log).WithError(err).Error("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationErrors lists the failed rule per field.
func validationErrors(err error) map[string]string {
	out := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
		return out
	}
	out["body"] = err.Error()
	return out
}

func (h *Handlers) invalidateDashboard() {
	h.cache.Delete(dashboardCacheKey)
}

// --- Cheques ---

type chequeRequest struct {
	ChequeDate    string      `json:"cheque_date" validate:"required,datetime=2006-01-02"`
	ChequeNumber  string      `json:"cheque_number" validate:"required,max=32"`
	BankName      string      `json:"bank_name" validate:"required"`
	Branch        string      `json:"branch" validate:"required"`
	BankCode      string      `json:"bank_code" validate:"omitempty,max=16"`
	Payee         string      `json:"payee" validate:"required"`
	AccountHolder string      `json:"account_holder"`
	AccountNumber string      `json:"account_number"`
	Amount        json.Number `json:"amount" validate:"required"`
	AmountWords   string      `json:"amount_words"`
	Status        string      `json:"status" validate:"omitempty,oneof=pending processed deposited"`
	Notes         string      `json:"notes"`
}

// bind validates the request and copies it onto c.
func (h *Handlers) bind(req *chequeRequest, c *domain.Cheque) map[string]string {
	if err := h.validate.Struct(req); err != nil {
		return validationErrors(err)
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		return map[string]string{"amount": "numeric"}
	}
	if amount, err = currency.CheckAmount(amount); err != nil {
		return map[string]string{"amount": "lte"}
	}
	if !amount.IsPositive() {
		return map[string]string{"amount": "gt"}
	}

	c.ChequeDate = req.ChequeDate
	c.ChequeNumber = strings.TrimSpace(req.ChequeNumber)
	c.BankName = strings.TrimSpace(req.BankName)
	c.Branch = strings.TrimSpace(req.Branch)
	c.BankCode = strings.TrimSpace(req.BankCode)
	c.Payee = strings.TrimSpace(req.Payee)
	c.AccountHolder = strings.TrimSpace(req.AccountHolder)
	c.AccountNumber = strings.TrimSpace(req.AccountNumber)
	c.Amount = amount
	c.AmountWords = req.AmountWords
	if c.AmountWords == "" {
		c.AmountWords = currency.AmountWords(amount)
	}
	if req.Status != "" {
		c.Status = domain.ChequeStatus(req.Status)
	}
	c.Notes = req.Notes
	return nil
}

func (h *Handlers) ListCheques(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ChequeFilter{
		Query:  q.Get("q"),
		Status: q.Get("status"),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Page:   parseIntDefault(q.Get("page"), 1),
		Limit:  parseIntDefault(q.Get("limit"), 10),
	}
	if v := q.Get("exported"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "exported must be true or false")
			return
		}
		filter.Exported = &b
	}

	cheques, total, err := h.cheques.List(filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if cheques == nil {
		cheques = []domain.Cheque{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cheques": cheques,
		"total":   total,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

func (h *Handlers) CreateCheque(w http.ResponseWriter, r *http.Request) {
	var req chequeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	now := h.now()
	c := domain.Cheque{ID: uuid.NewString(), AddedDate: now}
	if errs := h.bind(&req, &c); errs != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": errs})
		return
	}
	c.Normalize(now)

	if err := h.cheques.Insert(&c); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidateDashboard()
	logger.FromContext(r.Context(), h.log).WithField("cheque_id", c.ID).Info("cheque created")

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) GetCheque(w http.ResponseWriter, r *http.Request) {
	c, err := h.cheques.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) UpdateCheque(w http.ResponseWriter, r *http.Request) {
	c, err := h.cheques.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	var req chequeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	// Words are recomputed unless the client sends its own.
	c.AmountWords = ""
	if errs := h.bind(&req, c); errs != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": errs})
		return
	}
	c.Normalize(h.now())

	if err := h.cheques.Upsert(*c); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidateDashboard()
	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) DeleteCheque(w http.ResponseWriter, r *http.Request) {
	if err := h.cheques.Delete(chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidateDashboard()
	w.WriteHeader(http.StatusNoContent)
}

type idsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

func (h *Handlers) decodeIDs(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var req idsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": validationErrors(err)})
		return nil, false
	}
	return req.IDs, true
}

func (h *Handlers) BulkMarkExported(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.decodeIDs(w, r)
	if !ok {
		return
	}
	n, err := h.cheques.MarkExported(ids, domain.ExportBulk, h.now())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidateDashboard()
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *Handlers) BulkDelete(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.decodeIDs(w, r)
	if !ok {
		return
	}
	n, err := h.cheques.DeleteMany(ids)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidateDashboard()
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// --- Banks ---

func (h *Handlers) ListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.banks.List()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if banks == nil {
		banks = []domain.Bank{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"banks": banks})
}

type branchRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handlers) AddBranch(w http.ResponseWriter, r *http.Request) {
	bank := strings.TrimSpace(chi.URLParam(r, "bank"))
	var req branchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil || bank == "" {
		writeError(w, http.StatusUnprocessableEntity, "bank and branch name are required")
		return
	}

	if err := h.banks.AddBranch(bank, req.Name); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"bank": bank, "branch": strings.TrimSpace(req.Name)})
}

// --- Dashboard ---

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.cache.Get(dashboardCacheKey); ok {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, cached)
		return
	}

	stats, err := h.cheques.GetDashboardStats(h.now())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	lastExport, err := h.settings.LastExport()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dashboard := map[string]any{
		"cheques": map[string]int{
			"total":      stats.Total,
			"this_week":  stats.ThisWeek,
			"pending":    stats.Pending,
			"deposited":  stats.Deposited,
			"unexported": stats.Unexported,
		},
		"amounts": map[string]string{
			"total":           stats.TotalAmount.StringFixed(2),
			"average":         stats.AvgAmount.StringFixed(2),
			"total_formatted": currency.Format(stats.TotalAmount, h.currencyLabel),
		},
		"process_rate": stats.ProcessRate,
		"last_export":  lastExport,
	}

	h.cache.SetDefault(dashboardCacheKey, dashboard)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, dashboard)
}

// --- Import / export ---

func (h *Handlers) ImportCheques(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
		return
	}
	defer file.Close()

	format := r.FormValue("format")
	if format == "" {
		format = filepath.Ext(header.Filename)
	}
	if format == "" {
		writeError(w, http.StatusBadRequest, "format is required")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read file: "+err.Error())
		return
	}

	result, err := h.ingestionSvc.Import(data, format)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.invalidateDashboard()

	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) ListImports(w http.ResponseWriter, r *http.Request) {
	batches, err := h.imports.List()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if batches == nil {
		batches = []repository.ImportBatch{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": batches})
}

func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	var (
		file *export.File
		err  error
	)
	switch kind := chi.URLParam(r, "kind"); kind {
	case export.KindFull:
		file, err = h.exportSvc.Full()
	case export.KindUpdates:
		file, err = h.exportSvc.Updates()
	case export.KindRange:
		file, err = h.exportSvc.DateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	case export.KindBackup:
		file, err = h.exportSvc.Backup()
	default:
		writeError(w, http.StatusNotFound, "unknown export kind: "+kind)
		return
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidateDashboard()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	w.Header().Set("X-Record-Count", strconv.Itoa(file.Count))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		logger.FromContext(r.Context(), h.log).WithError(err).Warn("write export")
	}
}
