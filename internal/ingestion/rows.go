package ingestion

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/chequepro/depositslip/internal/currency"
	"github.com/chequepro/depositslip/internal/domain"
)

// Column headers of an import sheet. Only ColChequeNumber and ColAmount are
// required.
const (
	ColDate         = "Date"
	ColChequeNumber = "Cheque Number"
	ColBankName     = "Bank Name"
	ColBankBranch   = "Bank Branch"
	ColBankCode     = "Bank Code"
	ColPayee        = "Payee"
	ColAmount       = "Amount"
)

// canonicalHeader maps the headers written by the exporter, such as
// "Amount (LKR)", onto the import columns.
func canonicalHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	if strings.HasPrefix(h, ColAmount+" (") && strings.HasSuffix(h, ")") {
		return ColAmount
	}
	return h
}

// sheetRow is one data row keyed by its column header.
type sheetRow map[string]string

// rowsFromTable turns a header row plus data rows into keyed rows. Short rows
// are padded with blanks.
func rowsFromTable(table [][]string) []sheetRow {
	if len(table) == 0 {
		return nil
	}
	header := make([]string, len(table[0]))
	for i, h := range table[0] {
		header[i] = canonicalHeader(h)
	}

	rows := make([]sheetRow, 0, len(table)-1)
	for _, rec := range table[1:] {
		r := make(sheetRow, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(rec) {
				r[h] = strings.TrimSpace(rec[i])
			} else {
				r[h] = ""
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// chequeFromRow builds a pending cheque from an import row. ok is false for
// rows without a cheque number or with an amount that is not positive or is
// above currency.MaxAmount.
func chequeFromRow(r sheetRow, id string, now time.Time) (domain.Cheque, bool) {
	number := r[ColChequeNumber]
	amount, err := currency.ParseAmount(r[ColAmount])
	if number == "" || err != nil || !amount.IsPositive() {
		return domain.Cheque{}, false
	}

	c := domain.Cheque{
		ID:           id,
		ChequeDate:   normalizeDate(r[ColDate]),
		ChequeNumber: number,
		BankName:     r[ColBankName],
		Branch:       r[ColBankBranch],
		BankCode:     r[ColBankCode],
		Payee:        r[ColPayee],
		Amount:       amount,
		AmountWords:  currency.AmountWords(amount),
		Status:       domain.StatusPending,
		AddedDate:    now,
	}
	c.Normalize(now)
	return c, true
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"01-02-06",
}

// normalizeDate converts the date formats seen in exported sheets, including
// Excel serial day numbers, to YYYY-MM-DD. Unrecognised values become "".
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return ""
		}
		return t.Format("2006-01-02")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
