package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/chequepro/depositslip/internal/domain"
	"github.com/chequepro/depositslip/internal/repository"
)

// Kinds of export.
const (
	KindFull    = "full"
	KindUpdates = "updates"
	KindRange   = "range"
	KindBackup  = "backup"
)

// File is a generated export ready to be written or sent.
type File struct {
	Name        string
	ContentType string
	Count       int
	Data        []byte
}

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	jsonContentType = "application/json"
)

type Options struct {
	// AutoMarkExported flags cheques as exported after full and update
	// exports.
	AutoMarkExported bool
	CurrencyLabel    string
}

type Service struct {
	cheques  *repository.ChequeRepo
	banks    *repository.BankRepo
	settings *repository.SettingsRepo
	opts     Options
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(
	cheques *repository.ChequeRepo,
	banks *repository.BankRepo,
	settings *repository.SettingsRepo,
	opts Options,
	log logrus.FieldLogger,
) *Service {
	if opts.CurrencyLabel == "" {
		opts.CurrencyLabel = "LKR"
	}
	return &Service{
		cheques:  cheques,
		banks:    banks,
		settings: settings,
		opts:     opts,
		log:      log.WithField("component", "export"),
		now:      time.Now,
	}
}

// Full exports every cheque with a per-bank summary sheet.
func (s *Service) Full() (*File, error) {
	cheques, err := s.cheques.All()
	if err != nil {
		return nil, fmt.Errorf("load cheques: %w", err)
	}

	now := s.now()
	data, err := s.workbook("All Cheques", cheques, true)
	if err != nil {
		return nil, err
	}

	if s.opts.AutoMarkExported {
		if _, err := s.cheques.MarkExported(nil, domain.ExportFull, now); err != nil {
			return nil, err
		}
	}
	return s.finish(KindFull, "ChequePro_Full_"+now.Format("2006-01-02")+".xlsx", xlsxContentType, data, len(cheques), now)
}

// Updates exports cheques that were never exported before.
func (s *Service) Updates() (*File, error) {
	cheques, err := s.cheques.Unexported()
	if err != nil {
		return nil, fmt.Errorf("load cheques: %w", err)
	}
	if len(cheques) == 0 {
		return nil, domain.ErrNothingToExport
	}

	now := s.now()
	data, err := s.workbook("New Cheques", cheques, false)
	if err != nil {
		return nil, err
	}

	if s.opts.AutoMarkExported {
		ids := make([]string, len(cheques))
		for i, c := range cheques {
			ids[i] = c.ID
		}
		if _, err := s.cheques.MarkExported(ids, domain.ExportUpdate, now); err != nil {
			return nil, err
		}
	}
	return s.finish(KindUpdates, "ChequePro_Updates_"+now.Format("2006-01-02")+".xlsx", xlsxContentType, data, len(cheques), now)
}

// DateRange exports cheques dated between from and to inclusive
// (YYYY-MM-DD). It does not mark them exported.
func (s *Service) DateRange(from, to string) (*File, error) {
	start, err1 := time.Parse("2006-01-02", from)
	end, err2 := time.Parse("2006-01-02", to)
	if err1 != nil || err2 != nil || end.Before(start) {
		return nil, fmt.Errorf("%w: %q to %q", domain.ErrInvalidDateRange, from, to)
	}

	cheques, err := s.cheques.ByChequeDate(from, to)
	if err != nil {
		return nil, fmt.Errorf("load cheques: %w", err)
	}
	if len(cheques) == 0 {
		return nil, domain.ErrNothingToExport
	}

	now := s.now()
	data, err := s.workbook("Range "+from+" to "+to, cheques, false)
	if err != nil {
		return nil, err
	}
	return s.finish(KindRange, "ChequePro_Range_"+now.Format("2006-01-02")+".xlsx", xlsxContentType, data, len(cheques), now)
}

// Backup writes a JSON snapshot of cheques, banks and settings that the JSON
// import restores.
func (s *Service) Backup() (*File, error) {
	cheques, err := s.cheques.All()
	if err != nil {
		return nil, fmt.Errorf("load cheques: %w", err)
	}
	banks, err := s.banks.List()
	if err != nil {
		return nil, fmt.Errorf("load banks: %w", err)
	}
	settings, err := s.settings.All()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if cheques == nil {
		cheques = []domain.Cheque{}
	}

	now := s.now()
	data, err := json.MarshalIndent(domain.Backup{
		Version:    domain.BackupVersion,
		ExportedAt: now.UTC(),
		Cheques:    cheques,
		Banks:      banks,
		Settings:   settings,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}

	if err := s.settings.Set(repository.SettingLastBackup, now.Format(time.RFC3339)); err != nil {
		return nil, err
	}
	s.log.WithField("cheques", len(cheques)).Info("backup created")
	return &File{
		Name:        "ChequePro_Backup_" + now.Format("2006-01-02") + ".json",
		ContentType: jsonContentType,
		Count:       len(cheques),
		Data:        data,
	}, nil
}

func (s *Service) finish(kind, name, contentType string, data []byte, count int, now time.Time) (*File, error) {
	if err := s.settings.SetLastExport(now); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"kind": kind, "cheques": count, "file": name}).Info("export created")
	return &File{Name: name, ContentType: contentType, Count: count, Data: data}, nil
}

func (s *Service) headers() []any {
	return []any{
		"Date", "Cheque Number", "Bank Name", "Bank Branch", "Bank Code", "Payee",
		"Account Holder", "Account Number", "Amount (" + s.opts.CurrencyLabel + ")", "Amount in Words",
		"Status", "Exported", "Export Date", "Notes", "Added Date", "Deposited Date",
	}
}

func (s *Service) workbook(sheet string, cheques []domain.Cheque, withSummary bool) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	if err := setRow(f, sheet, 1, s.headers()); err != nil {
		return nil, err
	}
	for i, c := range cheques {
		if err := setRow(f, sheet, i+2, chequeRow(c)); err != nil {
			return nil, err
		}
	}

	if withSummary {
		if err := s.summarySheet(f, cheques); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type bankTotal struct {
	name  string
	count int
	total decimal.Decimal
}

// summarySheet adds the per-bank count and total, banks in order of first
// appearance.
func (s *Service) summarySheet(f *excelize.File, cheques []domain.Cheque) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}

	var totals []*bankTotal
	index := make(map[string]*bankTotal)
	for _, c := range cheques {
		bt, ok := index[c.BankName]
		if !ok {
			bt = &bankTotal{name: c.BankName, total: decimal.Zero}
			index[c.BankName] = bt
			totals = append(totals, bt)
		}
		bt.count++
		bt.total = bt.total.Add(c.Amount)
	}

	if err := setRow(f, sheet, 1, []any{"Bank Name", "Cheque Count", "Total Amount (" + s.opts.CurrencyLabel + ")"}); err != nil {
		return err
	}
	for i, bt := range totals {
		if err := setRow(f, sheet, i+2, []any{bt.name, bt.count, bt.total.Round(2).InexactFloat64()}); err != nil {
			return err
		}
	}
	return nil
}

func chequeRow(c domain.Cheque) []any {
	holder := c.AccountHolder
	if holder == "" {
		holder = c.Payee
	}
	exported := "No"
	if c.Exported {
		exported = "Yes"
	}
	return []any{
		c.ChequeDate, c.ChequeNumber, c.BankName, c.Branch, c.BankCode, c.Payee,
		holder, c.AccountNumber, c.Amount.InexactFloat64(), c.AmountWords,
		titleCase(string(c.Status)), exported, formatDate(c.ExportDate), c.Notes,
		c.AddedDate.Format("2006-01-02"), formatDate(c.DepositedDate),
	}
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
