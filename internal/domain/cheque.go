package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ChequeStatus string

const (
	StatusPending   ChequeStatus = "pending"
	StatusProcessed ChequeStatus = "processed"
	StatusDeposited ChequeStatus = "deposited"
)

// Valid reports whether s is one of the known statuses.
func (s ChequeStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusDeposited:
		return true
	}
	return false
}

type ExportType string

const (
	ExportFull   ExportType = "full"
	ExportUpdate ExportType = "update"
	ExportBulk   ExportType = "bulk"
)

type Cheque struct {
	ID            string          `json:"id"`
	ChequeDate    string          `json:"cheque_date"`
	ChequeNumber  string          `json:"cheque_number"`
	BankName      string          `json:"bank_name"`
	Branch        string          `json:"branch"`
	BankCode      string          `json:"bank_code"`
	Payee         string          `json:"payee"`
	AccountHolder string          `json:"account_holder"`
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	AmountWords   string          `json:"amount_words"`
	Status        ChequeStatus    `json:"status"`
	Notes         string          `json:"notes"`
	Exported      bool            `json:"exported"`
	ExportDate    *time.Time      `json:"export_date,omitempty"`
	ExportType    ExportType      `json:"export_type,omitempty"`
	AddedDate     time.Time       `json:"added_date"`
	DepositedDate *time.Time      `json:"deposited_date,omitempty"`
}

// Normalize clamps negative amounts and fills defaults. DepositedDate is set
// exactly when the cheque is deposited.
func (c *Cheque) Normalize(now time.Time) {
	if c.Amount.IsNegative() {
		c.Amount = decimal.Zero
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	if c.AccountHolder == "" {
		c.AccountHolder = c.Payee
	}
	switch {
	case c.Status == StatusDeposited && c.DepositedDate == nil:
		t := now
		c.DepositedDate = &t
	case c.Status != StatusDeposited:
		c.DepositedDate = nil
	}
}

// MarkDeposited moves the cheque into its terminal state.
func (c *Cheque) MarkDeposited(at time.Time) {
	c.Status = StatusDeposited
	t := at
	c.DepositedDate = &t
}
