package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxSlipLines is the number of cheque rows printed on a physical slip.
const MaxSlipLines = 6

// LineField names an editable column of a deposit line.
type LineField string

const (
	FieldChequeNumber LineField = "chequeNumber"
	FieldBranchCode   LineField = "branchCode"
	FieldBranchName   LineField = "branchName"
	FieldAmount       LineField = "amount"
)

// LineItem is one row of the deposit slip form. ChequeID is set when the row
// was filled from a stored cheque; manually typed rows leave it blank.
type LineItem struct {
	ChequeID     string          `json:"cheque_id,omitempty"`
	ChequeNumber string          `json:"cheque_number"`
	BranchCode   string          `json:"branch_code"`
	BranchName   string          `json:"branch_name"`
	Amount       decimal.Decimal `json:"amount"`
}

// IsEmpty reports whether the row carries no data at all. Whitespace-only
// text counts as blank.
func (l LineItem) IsEmpty() bool {
	return strings.TrimSpace(l.ChequeNumber) == "" &&
		strings.TrimSpace(l.BranchCode) == "" &&
		strings.TrimSpace(l.BranchName) == "" &&
		l.Amount.IsZero()
}

type SlipLine struct {
	ChequeNumber string          `json:"cheque_number"`
	BranchCode   string          `json:"branch_code"`
	BranchName   string          `json:"branch_name"`
	Amount       decimal.Decimal `json:"amount"`
	Rupees       int64           `json:"rupees"`
	Cents        int64           `json:"cents"`
}

type DepositSlip struct {
	BankName            string          `json:"bank_name"`
	AccountHolder       string          `json:"account_holder"`
	AccountNumberDigits string          `json:"account_number_digits"`
	DepositDateDigits   string          `json:"deposit_date_digits"`
	Lines               []SlipLine      `json:"lines"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	TotalRupees         int64           `json:"total_rupees"`
	TotalCents          int64           `json:"total_cents"`
	TotalInWords        string          `json:"total_in_words"`
}
