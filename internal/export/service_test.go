package export_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/chequepro/depositslip/internal/domain"
	"github.com/chequepro/depositslip/internal/export"
	"github.com/chequepro/depositslip/internal/ingestion"
	"github.com/chequepro/depositslip/internal/logger"
	"github.com/chequepro/depositslip/internal/repository"
)

type fixture struct {
	svc      *export.Service
	cheques  *repository.ChequeRepo
	settings *repository.SettingsRepo
}

func newFixture(t *testing.T, autoMark bool) fixture {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cheques := repository.NewChequeRepo(db)
	banks := repository.NewBankRepo(db)
	settings := repository.NewSettingsRepo(db)
	_, err = banks.SeedDefaults()
	require.NoError(t, err)

	_, err = cheques.BulkInsert([]domain.Cheque{
		newCheque("a", "2024-01-05", "Bank of Ceylon", "1000.50"),
		newCheque("b", "2024-02-10", "HNB", "250"),
		newCheque("c", "2024-02-20", "Bank of Ceylon", "99.50"),
	})
	require.NoError(t, err)

	svc := export.NewService(cheques, banks, settings, export.Options{AutoMarkExported: autoMark}, logger.Discard())
	return fixture{svc: svc, cheques: cheques, settings: settings}
}

func newCheque(id, date, bank, amount string) domain.Cheque {
	return domain.Cheque{
		ID:           id,
		ChequeDate:   date,
		ChequeNumber: "N-" + id,
		BankName:     bank,
		Branch:       "Colombo",
		Payee:        "Payee " + id,
		Amount:       decimal.RequireFromString(amount),
		Status:       domain.StatusPending,
		AddedDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func Test_Full_WritesSheetAndSummary(t *testing.T) {
	// arrange
	fx := newFixture(t, true)

	// act
	file, err := fx.svc.Full()

	// assert
	require.NoError(t, err)
	assert.Equal(t, 3, file.Count)
	assert.Contains(t, file.Name, "ChequePro_Full_")

	f := openWorkbook(t, file.Data)
	assert.Equal(t, []string{"All Cheques", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("All Cheques")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Cheque Number", rows[0][1])
	assert.Equal(t, "Amount (LKR)", rows[0][8])
	assert.Equal(t, "N-c", rows[1][1])
	assert.Equal(t, "Pending", rows[1][10])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"Bank of Ceylon", "2", "1100"}, summary[1])
	assert.Equal(t, []string{"HNB", "1", "250"}, summary[2])

	left, err := fx.cheques.Unexported()
	require.NoError(t, err)
	assert.Empty(t, left)

	last, err := fx.settings.LastExport()
	require.NoError(t, err)
	assert.NotNil(t, last)
}

func Test_Full_ReimportsIntoEmptyBook(t *testing.T) {
	// arrange
	fx := newFixture(t, false)
	file, err := fx.svc.Full()
	require.NoError(t, err)

	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	target := repository.NewChequeRepo(db)
	svc := ingestion.NewService(target, repository.NewImportRepo(db), logger.Discard())

	// act
	res, err := svc.Import(file.Data, ingestion.FormatXLSX)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 3, res.RecordsImported)
	assert.Zero(t, res.RowsSkipped)

	all, err := target.All()
	require.NoError(t, err)
	amounts := map[string]string{}
	for _, c := range all {
		amounts[c.ChequeNumber] = c.Amount.StringFixed(2)
	}
	assert.Equal(t, map[string]string{"N-a": "1000.50", "N-b": "250.00", "N-c": "99.50"}, amounts)
}

func Test_Full_WithoutAutoMark(t *testing.T) {
	fx := newFixture(t, false)

	_, err := fx.svc.Full()

	require.NoError(t, err)
	left, err := fx.cheques.Unexported()
	require.NoError(t, err)
	assert.Len(t, left, 3)
}

func Test_Updates_ExportsOnlyNewCheques(t *testing.T) {
	// arrange
	fx := newFixture(t, true)
	_, err := fx.cheques.MarkExported([]string{"a"}, domain.ExportFull, time.Now())
	require.NoError(t, err)

	// act
	file, err := fx.svc.Updates()

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, file.Count)
	f := openWorkbook(t, file.Data)
	assert.Equal(t, []string{"New Cheques"}, f.GetSheetList())

	b, err := fx.cheques.Get("b")
	require.NoError(t, err)
	assert.True(t, b.Exported)
	assert.Equal(t, domain.ExportUpdate, b.ExportType)

	_, err = fx.svc.Updates()
	assert.ErrorIs(t, err, domain.ErrNothingToExport)
}

func Test_DateRange(t *testing.T) {
	fx := newFixture(t, true)

	file, err := fx.svc.DateRange("2024-02-01", "2024-02-29")

	require.NoError(t, err)
	assert.Equal(t, 2, file.Count)
	f := openWorkbook(t, file.Data)
	assert.Equal(t, []string{"Range 2024-02-01 to 2024-02-29"}, f.GetSheetList())

	left, err := fx.cheques.Unexported()
	require.NoError(t, err)
	assert.Len(t, left, 3)
}

func Test_DateRange_Invalid(t *testing.T) {
	fx := newFixture(t, true)

	_, err := fx.svc.DateRange("2024-03-01", "2024-02-01")
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = fx.svc.DateRange("yesterday", "2024-02-01")
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = fx.svc.DateRange("2030-01-01", "2030-12-31")
	assert.ErrorIs(t, err, domain.ErrNothingToExport)
}

func Test_Backup(t *testing.T) {
	fx := newFixture(t, true)
	require.NoError(t, fx.settings.Set(repository.SettingDepositAccountHolder, "ABC Traders"))

	file, err := fx.svc.Backup()

	require.NoError(t, err)
	var backup domain.Backup
	require.NoError(t, json.Unmarshal(file.Data, &backup))
	assert.Equal(t, domain.BackupVersion, backup.Version)
	assert.Len(t, backup.Cheques, 3)
	assert.Len(t, backup.Banks, 12)
	assert.Equal(t, "ABC Traders", backup.Settings[repository.SettingDepositAccountHolder])

	_, ok, err := fx.settings.Get(repository.SettingLastBackup)
	require.NoError(t, err)
	assert.True(t, ok)
}
