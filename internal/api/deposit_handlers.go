package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/chequepro/depositslip/internal/deposit"
	"github.com/chequepro/depositslip/internal/domain"
	"github.com/chequepro/depositslip/internal/logger"
	"github.com/chequepro/depositslip/internal/repository"
)

// slipSession holds the one deposit slip being assembled. The assembler is
// single-actor, so every call goes through mu.
type slipSession struct {
	mu        sync.Mutex
	assembler *deposit.Assembler
	settings  *repository.SettingsRepo

	// revision counts slip recomputations pushed by the assembler.
	revision int
	latest   domain.DepositSlip
}

func newSlipSession(store deposit.ChequeStore, settings *repository.SettingsRepo, log logrus.FieldLogger, now func() time.Time) *slipSession {
	s := &slipSession{settings: settings}

	header := deposit.Header{DepositDate: now().Format("2006-01-02")}
	if settings != nil {
		header.BankName, _ = settings.GetOr(repository.SettingDepositBankName, "")
		header.AccountHolder, _ = settings.GetOr(repository.SettingDepositAccountHolder, "")
		header.AccountNumber, _ = settings.GetOr(repository.SettingDepositAccountNumber, "")
	}

	s.assembler = deposit.NewAssembler(store,
		deposit.WithSurface(s),
		deposit.WithLogger(log),
		deposit.WithClock(now),
		deposit.WithHeader(header),
	)
	s.latest = s.assembler.ComputeSlip()
	return s
}

// SlipChanged is called by the assembler with mu held.
func (s *slipSession) SlipChanged(slip domain.DepositSlip) {
	s.revision++
	s.latest = slip
}

type slipState struct {
	Revision int                `json:"revision"`
	Header   deposit.Header     `json:"header"`
	Lines    []domain.LineItem  `json:"lines"`
	Slip     domain.DepositSlip `json:"slip"`
}

// state must be called with mu held.
func (s *slipSession) state() slipState {
	lines := s.assembler.Lines()
	if lines == nil {
		lines = []domain.LineItem{}
	}
	return slipState{
		Revision: s.revision,
		Header:   s.assembler.Header(),
		Lines:    lines,
		Slip:     s.latest,
	}
}

// do runs fn under the session lock and writes the resulting state, or the
// error fn returned.
func (h *Handlers) do(w http.ResponseWriter, r *http.Request, status int, fn func(a *deposit.Assembler) error) {
	h.slip.mu.Lock()
	defer h.slip.mu.Unlock()

	if err := fn(h.slip.assembler); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, status, h.slip.state())
}

func lineIndex(r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	return idx, err == nil
}

func (h *Handlers) GetDepositSlip(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, http.StatusOK, func(*deposit.Assembler) error { return nil })
}

func (h *Handlers) SetSlipHeader(w http.ResponseWriter, r *http.Request) {
	var hdr deposit.Header
	if err := decodeBody(r, &hdr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if hdr.DepositDate != "" {
		if _, err := time.Parse("2006-01-02", hdr.DepositDate); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "deposit_date must be YYYY-MM-DD")
			return
		}
	}

	h.do(w, r, http.StatusOK, func(a *deposit.Assembler) error {
		// The account section is remembered for the next slip.
		if err := h.settings.SetMany(map[string]string{
			repository.SettingDepositBankName:      strings.TrimSpace(hdr.BankName),
			repository.SettingDepositAccountHolder: strings.TrimSpace(hdr.AccountHolder),
			repository.SettingDepositAccountNumber: strings.TrimSpace(hdr.AccountNumber),
		}); err != nil {
			return err
		}
		a.SetHeader(hdr)
		return nil
	})
}

func (h *Handlers) AddSlipLine(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, http.StatusCreated, func(a *deposit.Assembler) error {
		_, err := a.AddLine()
		return err
	})
}

type lineUpdateRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

func (h *Handlers) UpdateSlipLine(w http.ResponseWriter, r *http.Request) {
	idx, ok := lineIndex(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "index must be a number")
		return
	}
	var req lineUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": validationErrors(err)})
		return
	}

	h.do(w, r, http.StatusOK, func(a *deposit.Assembler) error {
		return a.UpdateLine(idx, domain.LineField(req.Field), req.Value)
	})
}

type lookupRequest struct {
	ChequeNumber string `json:"cheque_number"`
}

func (h *Handlers) LookupSlipLine(w http.ResponseWriter, r *http.Request) {
	idx, ok := lineIndex(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "index must be a number")
		return
	}
	var req lookupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	h.do(w, r, http.StatusOK, func(a *deposit.Assembler) error {
		return a.LookupByChequeNumber(idx, req.ChequeNumber)
	})
}

func (h *Handlers) DeleteSlipLine(w http.ResponseWriter, r *http.Request) {
	idx, ok := lineIndex(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "index must be a number")
		return
	}
	h.do(w, r, http.StatusOK, func(a *deposit.Assembler) error {
		return a.DeleteLine(idx)
	})
}

func (h *Handlers) SelectForDeposit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chequeID")
	h.do(w, r, http.StatusOK, func(a *deposit.Assembler) error {
		_, err := a.SelectForDeposit(id)
		return err
	})
}

type finalizeRequest struct {
	MarkDeposited bool `json:"mark_deposited"`
}

func (h *Handlers) FinalizeSlip(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	h.do(w, r, http.StatusOK, func(a *deposit.Assembler) error {
		if err := a.Finalize(req.MarkDeposited); err != nil {
			return err
		}
		logger.FromContext(r.Context(), h.log).
			WithField("mark_deposited", req.MarkDeposited).
			Info("deposit slip finalized")
		h.invalidateDashboard()
		return nil
	})
}

func (h *Handlers) ResetSlip(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, http.StatusOK, func(a *deposit.Assembler) error {
		a.Reset()
		return nil
	})
}
