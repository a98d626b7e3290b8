package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chequepro/depositslip/internal/currency"
	"github.com/chequepro/depositslip/internal/domain"
	"github.com/chequepro/depositslip/internal/ingestion"
	"github.com/chequepro/depositslip/internal/repository"
)

var payees = []string{
	"Nimal Perera", "Kamal Silva", "Sunil Traders", "Ruwan Jayasinghe",
	"Lanka Hardware", "Dilani Fernando", "Ceylon Spices Ltd", "Asanka Bandara",
	"Green Leaf Exports", "Tharindu Wickramasinghe",
}

var bankCodes = map[string]string{
	"People's Bank":      "7135",
	"Bank of Ceylon":     "7010",
	"Commercial Bank":    "7056",
	"HNB":                "7083",
	"Sampath Bank":       "7278",
	"DFCC Bank":          "7454",
	"NDB Bank":           "7214",
	"Seylan Bank":        "7287",
	"Pan Asia Bank":      "7311",
	"Citibank":           "7047",
	"HSBC":               "7092",
	"Standard Chartered": "7038",
}

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()

	banks, err := repository.DefaultBanks()
	if err != nil {
		panic(err)
	}

	// Cheques dated 2024-03-01 to 2024-03-28.
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	added := time.Date(2024, 3, 29, 9, 0, 0, 0, time.UTC)

	cheques := make([]domain.Cheque, 0, 40)
	for i := 0; i < 40; i++ {
		bank := banks[rng.Intn(len(banks))]
		branch := bank.Branches[rng.Intn(len(bank.Branches))]
		payee := payees[rng.Intn(len(payees))]

		// Amount between 500.00 and 250,000.00.
		amount := decimal.New(50000+rng.Int63n(25_000_000-50000), -2)

		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			panic(err)
		}

		c := domain.Cheque{
			ID:           id.String(),
			ChequeDate:   start.AddDate(0, 0, rng.Intn(28)).Format("2006-01-02"),
			ChequeNumber: fmt.Sprintf("%06d", 100000+rng.Intn(900000)),
			BankName:     bank.Name,
			Branch:       branch,
			BankCode:     bankCodes[bank.Name],
			Payee:        payee,
			Amount:       amount,
			AmountWords:  currency.AmountWords(amount),
			Status:       domain.StatusPending,
			AddedDate:    added,
		}

		// Status distribution: 70% pending, 15% processed, 15% deposited.
		switch roll := rng.Float64(); {
		case roll >= 0.85:
			c.MarkDeposited(added.AddDate(0, 0, -rng.Intn(5)))
		case roll >= 0.70:
			c.Status = domain.StatusProcessed
		}
		c.Normalize(added)
		cheques = append(cheques, c)
	}

	writeJSONFile(filepath.Join(baseDir, "cheques.json"), domain.Backup{
		Version:    domain.BackupVersion,
		ExportedAt: added,
		Cheques:    cheques,
	})
	fmt.Printf("Generated %d cheques -> cheques.json\n", len(cheques))

	writeImportCSV(rng, banks, filepath.Join(baseDir, "sample_import.csv"))
}

// writeImportCSV writes a spreadsheet-style import file with a few rows the
// importer must skip.
func writeImportCSV(rng *rand.Rand, banks []domain.Bank, path string) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{
		ingestion.ColDate, ingestion.ColChequeNumber, ingestion.ColBankName,
		ingestion.ColBankBranch, ingestion.ColBankCode, ingestion.ColPayee, ingestion.ColAmount,
	})

	for i := 0; i < 12; i++ {
		bank := banks[rng.Intn(len(banks))]
		number := fmt.Sprintf("%06d", 100000+rng.Intn(900000))
		amount := decimal.New(10000+rng.Int63n(5_000_000), -2).StringFixed(2)

		// Two rows without a number and one without an amount.
		switch i {
		case 3, 8:
			number = ""
		case 10:
			amount = ""
		}

		w.Write([]string{
			fmt.Sprintf("2024-04-%02d", 1+rng.Intn(28)),
			number,
			bank.Name,
			bank.Branches[rng.Intn(len(bank.Branches))],
			bankCodes[bank.Name],
			payees[rng.Intn(len(payees))],
			amount,
		})
	}
	fmt.Println("Generated 12 import rows -> sample_import.csv")
}

func writeJSONFile(path string, v any) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

func findTestdataDir() string {
	for _, c := range []string{"testdata", "../testdata", "."} {
		if info, err := os.Stat(filepath.Join(c, "generate")); err == nil && info.IsDir() {
			return c
		}
	}
	return "testdata"
}
