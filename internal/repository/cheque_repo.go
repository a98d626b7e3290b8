package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chequepro/depositslip/internal/domain"
)

const chequeColumns = `id, cheque_date, cheque_number, bank_name, branch, bank_code, payee,
	account_holder, account_number, amount, amount_words, status, notes, exported,
	export_date, export_type, added_date, deposited_date`

// Newest insertion first, the order the cheque list has always been shown in.
const chequeOrder = " ORDER BY rowid DESC"

// searchable maps record field names to columns for FindByField.
var searchable = map[string]string{
	"id":            "id",
	"chequeNumber":  "cheque_number",
	"bankName":      "bank_name",
	"bankCode":      "bank_code",
	"branch":        "branch",
	"payee":         "payee",
	"accountNumber": "account_number",
	"status":        "status",
}

type ChequeRepo struct {
	db *sql.DB
}

func NewChequeRepo(db *sql.DB) *ChequeRepo {
	return &ChequeRepo{db: db}
}

func (r *ChequeRepo) Insert(c *domain.Cheque) error {
	_, err := r.db.Exec(
		`INSERT INTO cheques (`+chequeColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		chequeArgs(c)...,
	)
	if err != nil {
		return fmt.Errorf("insert cheque: %w", err)
	}
	return nil
}

func (r *ChequeRepo) BulkInsert(cheques []domain.Cheque) (int, error) {
	inserted := 0
	sqlTx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.Prepare(
		`INSERT OR IGNORE INTO cheques (` + chequeColumns + `)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range cheques {
		res, err := stmt.Exec(chequeArgs(&cheques[i])...)
		if err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

const upsertSQL = `INSERT INTO cheques (` + chequeColumns + `)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(id) DO UPDATE SET
		cheque_date = excluded.cheque_date,
		cheque_number = excluded.cheque_number,
		bank_name = excluded.bank_name,
		branch = excluded.branch,
		bank_code = excluded.bank_code,
		payee = excluded.payee,
		account_holder = excluded.account_holder,
		account_number = excluded.account_number,
		amount = excluded.amount,
		amount_words = excluded.amount_words,
		status = excluded.status,
		notes = excluded.notes,
		exported = excluded.exported,
		export_date = excluded.export_date,
		export_type = excluded.export_type,
		deposited_date = excluded.deposited_date`

// Upsert inserts the cheque or overwrites the stored record with the same id.
// An existing record keeps its position in the list order.
func (r *ChequeRepo) Upsert(c domain.Cheque) error {
	if _, err := r.db.Exec(upsertSQL, chequeArgs(&c)...); err != nil {
		return fmt.Errorf("upsert cheque %s: %w", c.ID, err)
	}
	return nil
}

// UpsertAll writes every cheque in one transaction; either all are stored or
// none are.
func (r *ChequeRepo) UpsertAll(cheques []domain.Cheque) error {
	sqlTx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.Prepare(upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range cheques {
		if _, err := stmt.Exec(chequeArgs(&cheques[i])...); err != nil {
			return fmt.Errorf("upsert cheque %s: %w", cheques[i].ID, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *ChequeRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM cheques").Scan(&count)
	return count, err
}

// Get returns domain.ErrNotFound when no cheque has the given id.
func (r *ChequeRepo) Get(id string) (*domain.Cheque, error) {
	row := r.db.QueryRow("SELECT "+chequeColumns+" FROM cheques WHERE id = ?", id)
	c, err := scanCheque(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cheque %s: %w", id, err)
	}
	return c, nil
}

// FindByField returns every cheque whose field equals value exactly, newest
// first. field uses the record's field names ("chequeNumber", "bankName", ...).
func (r *ChequeRepo) FindByField(field, value string) ([]domain.Cheque, error) {
	col, ok := searchable[field]
	if !ok {
		return nil, fmt.Errorf("find by field: unsupported field %q", field)
	}
	return r.query("SELECT "+chequeColumns+" FROM cheques WHERE "+col+" = ?"+chequeOrder, value)
}

// All returns every stored cheque, newest first.
func (r *ChequeRepo) All() ([]domain.Cheque, error) {
	return r.query("SELECT " + chequeColumns + " FROM cheques" + chequeOrder)
}

// Unexported returns cheques that have not been part of any export yet.
func (r *ChequeRepo) Unexported() ([]domain.Cheque, error) {
	return r.query("SELECT " + chequeColumns + " FROM cheques WHERE exported = 0" + chequeOrder)
}

// ByChequeDate returns cheques dated within [from, to]; both bounds are
// YYYY-MM-DD strings.
func (r *ChequeRepo) ByChequeDate(from, to string) ([]domain.Cheque, error) {
	return r.query(
		"SELECT "+chequeColumns+" FROM cheques WHERE cheque_date >= ? AND cheque_date <= ?"+chequeOrder,
		from, to,
	)
}

func (r *ChequeRepo) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM cheques WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete cheque %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ChequeRepo) DeleteMany(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.Exec("DELETE FROM cheques WHERE id IN ("+placeholders(len(ids))+")", stringArgs(ids)...)
	if err != nil {
		return 0, fmt.Errorf("delete cheques: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// MarkExported flags the given cheques as exported. A nil ids slice marks
// every cheque.
func (r *ChequeRepo) MarkExported(ids []string, typ domain.ExportType, at time.Time) (int, error) {
	q := "UPDATE cheques SET exported = 1, export_date = ?, export_type = ?"
	args := []any{at.Format(time.RFC3339), string(typ)}
	if ids != nil {
		if len(ids) == 0 {
			return 0, nil
		}
		q += " WHERE id IN (" + placeholders(len(ids)) + ")"
		args = append(args, stringArgs(ids)...)
	}
	res, err := r.db.Exec(q, args...)
	if err != nil {
		return 0, fmt.Errorf("mark exported: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type ChequeFilter struct {
	Query    string
	Status   string
	Exported *bool
	From     string
	To       string
	Page     int
	Limit    int
}

func (r *ChequeRepo) List(f ChequeFilter) ([]domain.Cheque, int, error) {
	where, args := buildChequeWhere(f)

	var total int
	countSQL := "SELECT COUNT(*) FROM cheques" + where
	if err := r.db.QueryRow(countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	querySQL := "SELECT " + chequeColumns + " FROM cheques" + where + chequeOrder + " LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	cheques, err := r.query(querySQL, args...)
	if err != nil {
		return nil, 0, err
	}
	return cheques, total, nil
}

// DashboardStats holds aggregate cheque statistics.
type DashboardStats struct {
	Total       int             `json:"total"`
	ThisWeek    int             `json:"this_week"`
	Pending     int             `json:"pending"`
	Deposited   int             `json:"deposited"`
	Unexported  int             `json:"unexported"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AvgAmount   decimal.Decimal `json:"avg_amount"`
	ProcessRate int             `json:"process_rate"`
}

// GetDashboardStats aggregates the cheque book. Cheques dated on or after the
// Sunday starting now's week count as this week's.
func (r *ChequeRepo) GetDashboardStats(now time.Time) (*DashboardStats, error) {
	weekStart := WeekStart(now)
	s := &DashboardStats{}
	err := r.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN cheque_date >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status='pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status='deposited' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN exported=0 THEN 1 ELSE 0 END), 0)
		FROM cheques
	`, weekStart.Format("2006-01-02")).Scan(&s.Total, &s.ThisWeek, &s.Pending, &s.Deposited, &s.Unexported)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	// Amounts are stored as decimal text; sum them here rather than in SQL
	// floating point.
	rows, err := r.db.Query("SELECT amount FROM cheques")
	if err != nil {
		return nil, fmt.Errorf("dashboard amounts: %w", err)
	}
	defer rows.Close()

	s.TotalAmount = decimal.Zero
	for rows.Next() {
		var amt decimal.Decimal
		if err := rows.Scan(&amt); err != nil {
			return nil, fmt.Errorf("scan amount: %w", err)
		}
		s.TotalAmount = s.TotalAmount.Add(amt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.AvgAmount = decimal.Zero
	if s.Total > 0 {
		s.AvgAmount = s.TotalAmount.Div(decimal.NewFromInt(int64(s.Total))).Round(2)
		s.ProcessRate = int(decimal.NewFromInt(int64(s.Deposited * 100)).
			Div(decimal.NewFromInt(int64(s.Total))).Round(0).IntPart())
	}
	return s, nil
}

// WeekStart returns midnight of the Sunday on or before t.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, t.Location())
}

// --- helpers ---

func (r *ChequeRepo) query(q string, args ...any) ([]domain.Cheque, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var cheques []domain.Cheque
	for rows.Next() {
		c, err := scanCheque(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		cheques = append(cheques, *c)
	}
	return cheques, rows.Err()
}

func buildChequeWhere(f ChequeFilter) (string, []any) {
	var clauses []string
	var args []any

	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		clauses = append(clauses, `(LOWER(cheque_number) LIKE ? OR LOWER(bank_name) LIKE ?
			OR LOWER(branch) LIKE ? OR LOWER(payee) LIKE ? OR LOWER(account_holder) LIKE ?)`)
		args = append(args, like, like, like, like, like)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.Exported != nil {
		clauses = append(clauses, "exported = ?")
		args = append(args, boolToInt(*f.Exported))
	}
	if f.From != "" {
		clauses = append(clauses, "cheque_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "cheque_date <= ?")
		args = append(args, f.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func chequeArgs(c *domain.Cheque) []any {
	return []any{
		c.ID, c.ChequeDate, c.ChequeNumber, c.BankName, c.Branch, c.BankCode, c.Payee,
		c.AccountHolder, c.AccountNumber, c.Amount.String(), c.AmountWords, string(c.Status),
		c.Notes, boolToInt(c.Exported), formatNullableTime(c.ExportDate), string(c.ExportType),
		c.AddedDate.Format(time.RFC3339), formatNullableTime(c.DepositedDate),
	}
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func parseNullableTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheque(row rowScanner) (*domain.Cheque, error) {
	var c domain.Cheque
	var status, exportType, addedDate string
	var exported int
	var exportDate, depositedDate sql.NullString

	err := row.Scan(
		&c.ID, &c.ChequeDate, &c.ChequeNumber, &c.BankName, &c.Branch, &c.BankCode, &c.Payee,
		&c.AccountHolder, &c.AccountNumber, &c.Amount, &c.AmountWords, &status, &c.Notes,
		&exported, &exportDate, &exportType, &addedDate, &depositedDate,
	)
	if err != nil {
		return nil, err
	}

	c.Status = domain.ChequeStatus(status)
	c.ExportType = domain.ExportType(exportType)
	c.Exported = exported != 0
	c.AddedDate, _ = time.Parse(time.RFC3339, addedDate)
	c.ExportDate = parseNullableTime(exportDate)
	c.DepositedDate = parseNullableTime(depositedDate)

	return &c, nil
}
