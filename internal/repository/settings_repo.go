package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Setting keys.
const (
	SettingDepositBankName      = "deposit_slip.bank_name"
	SettingDepositAccountHolder = "deposit_slip.account_holder"
	SettingDepositAccountNumber = "deposit_slip.account_number"
	SettingLastExport           = "last_export"
	SettingLastBackup           = "last_backup"
)

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the stored value and whether the key exists.
func (r *SettingsRepo) Get(key string) (string, bool, error) {
	var v string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, true, nil
}

// GetOr returns the stored value, or def when the key is unset.
func (r *SettingsRepo) GetOr(key, def string) (string, error) {
	v, ok, err := r.Get(key)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

func (r *SettingsRepo) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// SetMany stores every pair in one transaction. Either all values are
// written or none are.
func (r *SettingsRepo) SetMany(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sqlTx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	for _, k := range keys {
		if _, err := sqlTx.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			k, values[k],
		); err != nil {
			return fmt.Errorf("set setting %s: %w", k, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SetDefault stores value only when key has never been set.
func (r *SettingsRepo) SetDefault(key, value string) error {
	if _, err := r.db.Exec("INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("default setting %s: %w", key, err)
	}
	return nil
}

// All returns every stored setting.
func (r *SettingsRepo) All() (map[string]string, error) {
	rows, err := r.db.Query("SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (r *SettingsRepo) LastExport() (*time.Time, error) {
	v, ok, err := r.Get(SettingLastExport)
	if err != nil || !ok {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("parse last export: %w", err)
	}
	return &t, nil
}

func (r *SettingsRepo) SetLastExport(at time.Time) error {
	return r.Set(SettingLastExport, at.Format(time.RFC3339))
}
