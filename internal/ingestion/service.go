package ingestion

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chequepro/depositslip/internal/currency"
	"github.com/chequepro/depositslip/internal/domain"
	"github.com/chequepro/depositslip/internal/repository"
)

// Supported import formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ImportResult is returned from a successful import.
type ImportResult struct {
	BatchID           string `json:"batch_id"`
	AlreadyImported   bool   `json:"already_imported"`
	RecordsImported   int    `json:"records_imported"`
	RowsSkipped       int    `json:"rows_skipped"`
	DuplicatesSkipped int    `json:"duplicates_skipped"`
}

// Service loads cheques from spreadsheet and backup files.
type Service struct {
	cheques *repository.ChequeRepo
	imports *repository.ImportRepo
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewService(cheques *repository.ChequeRepo, imports *repository.ImportRepo, log logrus.FieldLogger) *Service {
	return &Service{
		cheques: cheques,
		imports: imports,
		log:     log.WithField("component", "ingestion"),
		now:     time.Now,
	}
}

// Import parses data in the given format and stores the cheques it contains.
// A file whose content was imported before is not imported again.
//
// format must be one of: xlsx, csv, json
func (s *Service) Import(data []byte, format string) (*ImportResult, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))

	hash := fmt.Sprintf("%x", sha256.Sum256(data))
	exists, err := s.imports.ExistsByHash(hash)
	if err != nil {
		return nil, fmt.Errorf("check hash: %w", err)
	}
	if exists {
		s.log.WithField("hash", hash[:12]).Info("file already imported, skipping")
		return &ImportResult{AlreadyImported: true}, nil
	}

	now := s.now()
	var cheques []domain.Cheque
	var skipped int

	switch format {
	case FormatXLSX, FormatCSV:
		var rows []sheetRow
		if format == FormatXLSX {
			rows, err = ParseXLSX(data)
		} else {
			rows, err = ParseCSV(data)
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", format, err)
		}
		for _, r := range rows {
			c, ok := chequeFromRow(r, uuid.NewString(), now)
			if !ok {
				skipped++
				continue
			}
			cheques = append(cheques, c)
		}
	case FormatJSON:
		parsed, err := ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", format, err)
		}
		for _, c := range parsed {
			if !prepareRestored(&c, now) {
				skipped++
				continue
			}
			cheques = append(cheques, c)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	inserted, err := s.cheques.BulkInsert(cheques)
	if err != nil {
		return nil, fmt.Errorf("insert cheques: %w", err)
	}

	batch := &repository.ImportBatch{
		ID:          uuid.NewString(),
		Format:      format,
		FileHash:    hash,
		RecordCount: inserted,
		ImportedAt:  now,
	}
	if err := s.imports.Insert(batch); err != nil {
		return nil, fmt.Errorf("record import: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"batch_id": batch.ID,
		"format":   format,
		"rows":     len(cheques) + skipped,
		"imported": inserted,
		"skipped":  skipped,
	}).Info("import complete")

	return &ImportResult{
		BatchID:           batch.ID,
		RecordsImported:   inserted,
		RowsSkipped:       skipped,
		DuplicatesSkipped: len(cheques) - inserted,
	}, nil
}

// prepareRestored fills what a restored cheque may lack. Cheques keep their
// id and status so a backup restores to the same state.
func prepareRestored(c *domain.Cheque, now time.Time) bool {
	c.ChequeNumber = strings.TrimSpace(c.ChequeNumber)
	amount, err := currency.CheckAmount(c.Amount)
	if c.ChequeNumber == "" || err != nil || !amount.IsPositive() {
		return false
	}
	c.Amount = amount
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if !c.Status.Valid() {
		c.Status = domain.StatusPending
	}
	if c.AmountWords == "" {
		c.AmountWords = currency.AmountWords(c.Amount)
	}
	if c.AddedDate.IsZero() {
		c.AddedDate = now
	}
	c.Normalize(now)
	return true
}
