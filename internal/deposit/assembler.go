package deposit

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/chequepro/depositslip/internal/currency"
	"github.com/chequepro/depositslip/internal/domain"
	"github.com/chequepro/depositslip/internal/logger"
)

// ChequeStore is the cheque collection the assembler reads from and, on
// finalize, writes deposited cheques back to. Get returns domain.ErrNotFound
// for unknown ids; FindByField returns matches in a stable order. Stores that
// also implement UpsertAll get the whole batch in one call. Otherwise cheques
// are upserted one at a time, and on a failed write the ones already written
// are put back to their previous state.
type ChequeStore interface {
	Get(id string) (*domain.Cheque, error)
	FindByField(field, value string) ([]domain.Cheque, error)
	Upsert(c domain.Cheque) error
	All() ([]domain.Cheque, error)
}

// batchUpserter is implemented by stores that can persist several cheques
// atomically.
type batchUpserter interface {
	UpsertAll(cheques []domain.Cheque) error
}

// Surface receives the recomputed slip after every change to the assembler's
// state.
type Surface interface {
	SlipChanged(slip domain.DepositSlip)
}

// Header is the account section printed at the top of the slip.
type Header struct {
	BankName      string `json:"bank_name"`
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number"`
	// DepositDate is an ISO date (YYYY-MM-DD).
	DepositDate string `json:"deposit_date"`
}

type Option func(*Assembler)

func WithSurface(s Surface) Option {
	return func(a *Assembler) { a.surface = s }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Assembler) { a.log = l.WithField("component", "deposit") }
}

func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

func WithHeader(h Header) Option {
	return func(a *Assembler) { a.header = h }
}

// Assembler holds the rows of one deposit slip being prepared. It is not safe
// for concurrent use.
type Assembler struct {
	store   ChequeStore
	surface Surface
	log     logrus.FieldLogger
	now     func() time.Time

	header Header
	lines  []domain.LineItem
}

func NewAssembler(store ChequeStore, opts ...Option) *Assembler {
	a := &Assembler{
		store: store,
		log:   logger.Discard(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assembler) Header() Header {
	return a.header
}

func (a *Assembler) SetHeader(h Header) {
	a.header = h
	a.changed()
}

// Lines returns a copy of the current rows, including empty ones.
func (a *Assembler) Lines() []domain.LineItem {
	out := make([]domain.LineItem, len(a.lines))
	copy(out, a.lines)
	return out
}

// AddLine appends an empty row and returns its index. The cap counts every
// row, filled or not, since the printed slip has a fixed number of lines.
func (a *Assembler) AddLine() (int, error) {
	if len(a.lines) >= domain.MaxSlipLines {
		return 0, domain.ErrCapacityExceeded
	}
	a.lines = append(a.lines, domain.LineItem{})
	a.changed()
	return len(a.lines) - 1, nil
}

// SelectForDeposit places a stored cheque on the first row that has no cheque
// number, appending a row when every existing one is taken.
func (a *Assembler) SelectForDeposit(chequeID string) (int, error) {
	c, err := a.store.Get(chequeID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && c == nil) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get cheque %s: %w", chequeID, err)
	}
	if c.Status == domain.StatusDeposited {
		return 0, domain.ErrAlreadyDeposited
	}

	idx := -1
	for i, l := range a.lines {
		if strings.TrimSpace(l.ChequeNumber) == "" {
			idx = i
			break
		}
	}
	if idx == -1 {
		if len(a.lines) >= domain.MaxSlipLines {
			return 0, domain.ErrCapacityExceeded
		}
		a.lines = append(a.lines, domain.LineItem{})
		idx = len(a.lines) - 1
	}

	a.lines[idx] = lineFromCheque(c)
	a.log.WithFields(logrus.Fields{"cheque_id": c.ID, "line": idx}).Debug("cheque selected for deposit")
	a.changed()
	return idx, nil
}

// UpdateLine overwrites one field of a row. Amounts that do not parse become
// zero; amounts above currency.MaxAmount are rejected with
// domain.ErrAmountTooLarge and leave the row as it was. Changing the cheque
// number detaches the row from the stored cheque it was filled from.
func (a *Assembler) UpdateLine(index int, field domain.LineField, value string) error {
	if err := a.checkIndex(index); err != nil {
		return err
	}
	l := &a.lines[index]
	switch field {
	case domain.FieldAmount:
		amount, err := currency.ParseAmount(value)
		if err != nil {
			return err
		}
		l.Amount = amount
	case domain.FieldChequeNumber:
		if value != l.ChequeNumber {
			l.ChequeID = ""
		}
		l.ChequeNumber = value
	case domain.FieldBranchCode:
		l.BranchCode = value
	case domain.FieldBranchName:
		l.BranchName = value
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
	}
	a.changed()
	return nil
}

// LookupByChequeNumber records the typed cheque number on the row and, when a
// stored cheque carries exactly that number, fills the row's branch and amount
// from it. The first match in the store's order wins.
func (a *Assembler) LookupByChequeNumber(index int, typed string) error {
	if err := a.checkIndex(index); err != nil {
		return err
	}
	number := strings.TrimSpace(typed)

	var match *domain.Cheque
	if number != "" {
		found, err := a.store.FindByField("chequeNumber", number)
		if err != nil {
			return fmt.Errorf("lookup cheque number %s: %w", number, err)
		}
		if len(found) > 0 {
			match = &found[0]
		}
	}

	l := &a.lines[index]
	if number != l.ChequeNumber {
		l.ChequeID = ""
	}
	l.ChequeNumber = number
	if match != nil {
		filled := lineFromCheque(match)
		l.ChequeID = filled.ChequeID
		l.BranchCode = filled.BranchCode
		l.BranchName = filled.BranchName
		l.Amount = filled.Amount
	}
	a.changed()
	return nil
}

func (a *Assembler) DeleteLine(index int) error {
	if err := a.checkIndex(index); err != nil {
		return err
	}
	a.lines = append(a.lines[:index], a.lines[index+1:]...)
	a.changed()
	return nil
}

// Reset drops every row. The header is kept.
func (a *Assembler) Reset() {
	a.lines = nil
	a.changed()
}

var nonDigits = regexp.MustCompile(`\D`)

// ComputeSlip derives the printable slip from the current state. It has no
// side effects.
func (a *Assembler) ComputeSlip() domain.DepositSlip {
	slip := domain.DepositSlip{
		BankName:            strings.TrimSpace(a.header.BankName),
		AccountHolder:       strings.TrimSpace(a.header.AccountHolder),
		AccountNumberDigits: accountDigits(a.header.AccountNumber),
		DepositDateDigits:   dateDigits(a.header.DepositDate),
		Lines:               []domain.SlipLine{},
		TotalAmount:         decimal.Zero,
	}

	for _, l := range a.lines {
		if l.IsEmpty() {
			continue
		}
		rupees, cents := currency.Split(l.Amount)
		slip.Lines = append(slip.Lines, domain.SlipLine{
			ChequeNumber: l.ChequeNumber,
			BranchCode:   l.BranchCode,
			BranchName:   l.BranchName,
			Amount:       l.Amount,
			Rupees:       rupees,
			Cents:        cents,
		})
		slip.TotalAmount = slip.TotalAmount.Add(l.Amount)
	}

	// The total is split once from the raw sum, not added up from the per-line
	// rupees and cents.
	slip.TotalRupees, slip.TotalCents = currency.Split(slip.TotalAmount)
	if slip.TotalAmount.IsPositive() {
		slip.TotalInWords = currency.AmountWords(slip.TotalAmount)
	}
	return slip
}

// Finalize spends the slip. With markDeposited, every stored cheque on a
// non-empty row moves to deposited and is written back in one batch when the
// store supports it. The rows are cleared either way; on a store error nothing
// is cleared.
func (a *Assembler) Finalize(markDeposited bool) error {
	var selected []domain.LineItem
	for _, l := range a.lines {
		if !l.IsEmpty() {
			selected = append(selected, l)
		}
	}
	if len(selected) == 0 {
		return domain.ErrNothingSelected
	}

	if markDeposited {
		updated, previous, err := a.depositedCheques(selected)
		if err != nil {
			return err
		}
		if err := a.persist(updated, previous); err != nil {
			return err
		}
		a.log.WithFields(logrus.Fields{
			"lines":     len(selected),
			"deposited": len(updated),
		}).Info("deposit slip finalized")
	} else {
		a.log.WithField("lines", len(selected)).Info("deposit slip printed without deposit")
	}

	a.lines = nil
	a.changed()
	return nil
}

// depositedCheques returns the deposited versions of the stored cheques on
// the slip together with their current state, index for index.
func (a *Assembler) depositedCheques(selected []domain.LineItem) (updated, previous []domain.Cheque, err error) {
	at := a.now()
	seen := make(map[string]bool)
	for _, l := range selected {
		if l.ChequeID == "" || seen[l.ChequeID] {
			continue
		}
		seen[l.ChequeID] = true

		c, err := a.store.Get(l.ChequeID)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && c == nil) {
			a.log.WithField("cheque_id", l.ChequeID).Warn("cheque on slip no longer stored, skipping")
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("get cheque %s: %w", l.ChequeID, err)
		}
		if c.Status == domain.StatusDeposited {
			continue
		}
		previous = append(previous, *c)
		c.MarkDeposited(at)
		updated = append(updated, *c)
	}
	return updated, previous, nil
}

func (a *Assembler) persist(cheques, previous []domain.Cheque) error {
	if len(cheques) == 0 {
		return nil
	}
	if b, ok := a.store.(batchUpserter); ok {
		if err := b.UpsertAll(cheques); err != nil {
			return fmt.Errorf("mark deposited: %w", err)
		}
		return nil
	}
	for i, c := range cheques {
		if err := a.store.Upsert(c); err != nil {
			a.rollback(previous[:i])
			return fmt.Errorf("mark deposited %s: %w", c.ID, err)
		}
	}
	return nil
}

// rollback restores cheques written before a failed upsert.
func (a *Assembler) rollback(previous []domain.Cheque) {
	for i := len(previous) - 1; i >= 0; i-- {
		if err := a.store.Upsert(previous[i]); err != nil {
			a.log.WithError(err).WithField("cheque_id", previous[i].ID).
				Error("restore cheque after failed finalize")
		}
	}
}

func (a *Assembler) checkIndex(index int) error {
	if index < 0 || index >= len(a.lines) {
		return fmt.Errorf("%w: %d", domain.ErrLineOutOfRange, index)
	}
	return nil
}

func (a *Assembler) changed() {
	if a.surface != nil {
		a.surface.SlipChanged(a.ComputeSlip())
	}
}

// lineFromCheque copies a stored cheque onto a slip row. The amount goes
// through a two-decimal text round trip, as it does when typed into the form.
func lineFromCheque(c *domain.Cheque) domain.LineItem {
	branch := c.Branch
	if branch == "" {
		branch = c.BankName
	}
	return domain.LineItem{
		ChequeID:     c.ID,
		ChequeNumber: c.ChequeNumber,
		BranchCode:   c.BankCode,
		BranchName:   branch,
		Amount:       currency.Fixed2(c.Amount),
	}
}

func accountDigits(raw string) string {
	d := nonDigits.ReplaceAllString(raw, "")
	if len(d) > 10 {
		d = d[:10]
	}
	return d
}

func dateDigits(iso string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(iso))
	if err != nil {
		return ""
	}
	return t.Format("02012006")
}
