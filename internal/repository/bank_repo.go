package repository

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chequepro/depositslip/internal/domain"
)

//go:embed default_banks.yaml
var defaultBanksYAML []byte

type bankFile struct {
	Banks []domain.Bank `yaml:"banks"`
}

// DefaultBanks returns the bank directory shipped with the application.
func DefaultBanks() ([]domain.Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(defaultBanksYAML, &f); err != nil {
		return nil, fmt.Errorf("parse default banks: %w", err)
	}
	return f.Banks, nil
}

type BankRepo struct {
	db *sql.DB
}

func NewBankRepo(db *sql.DB) *BankRepo {
	return &BankRepo{db: db}
}

// SeedDefaults fills an empty directory with DefaultBanks. A directory that
// already has banks is left untouched.
func (r *BankRepo) SeedDefaults() (bool, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM banks").Scan(&count); err != nil {
		return false, fmt.Errorf("count banks: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	banks, err := DefaultBanks()
	if err != nil {
		return false, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for i, b := range banks {
		if _, err := tx.Exec("INSERT INTO banks (name, position) VALUES (?, ?)", b.Name, i); err != nil {
			return false, fmt.Errorf("insert bank %s: %w", b.Name, err)
		}
		for j, br := range b.Branches {
			if _, err := tx.Exec(
				"INSERT INTO branches (bank_name, name, position) VALUES (?, ?, ?)", b.Name, br, j,
			); err != nil {
				return false, fmt.Errorf("insert branch %s/%s: %w", b.Name, br, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// List returns every bank with its branches, in the order they were added.
func (r *BankRepo) List() ([]domain.Bank, error) {
	rows, err := r.db.Query(`
		SELECT b.name, br.name
		FROM banks b
		LEFT JOIN branches br ON br.bank_name = b.name
		ORDER BY b.position, br.position
	`)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	defer rows.Close()

	var banks []domain.Bank
	for rows.Next() {
		var bank string
		var branch sql.NullString
		if err := rows.Scan(&bank, &branch); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if len(banks) == 0 || banks[len(banks)-1].Name != bank {
			banks = append(banks, domain.Bank{Name: bank, Branches: []string{}})
		}
		if branch.Valid {
			last := &banks[len(banks)-1]
			last.Branches = append(last.Branches, branch.String)
		}
	}
	return banks, rows.Err()
}

// AddBank registers a bank with no branches. Adding a known bank is a no-op.
func (r *BankRepo) AddBank(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("add bank: empty name")
	}
	_, err := r.db.Exec(`
		INSERT OR IGNORE INTO banks (name, position)
		VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM banks))
	`, name)
	if err != nil {
		return fmt.Errorf("add bank %s: %w", name, err)
	}
	return nil
}

// AddBranch appends a branch to a bank, creating the bank when it is new.
// It returns domain.ErrDuplicateBranch when the bank already has the branch.
func (r *BankRepo) AddBranch(bank, branch string) error {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return fmt.Errorf("add branch: empty name")
	}
	if err := r.AddBank(bank); err != nil {
		return err
	}
	bank = strings.TrimSpace(bank)

	var exists int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM branches WHERE bank_name = ? AND name = ?", bank, branch,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check branch: %w", err)
	}
	if exists > 0 {
		return domain.ErrDuplicateBranch
	}

	_, err = r.db.Exec(`
		INSERT INTO branches (bank_name, name, position)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM branches WHERE bank_name = ?))
	`, bank, branch, bank)
	if err != nil {
		return fmt.Errorf("add branch %s/%s: %w", bank, branch, err)
	}
	return nil
}
