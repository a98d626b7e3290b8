package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// One connection: SQLite serializes writers anyway, and ":memory:" would
	// otherwise hand each pooled connection its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cheques (
			id TEXT PRIMARY KEY,
			cheque_date TEXT NOT NULL DEFAULT '',
			cheque_number TEXT NOT NULL,
			bank_name TEXT NOT NULL DEFAULT '',
			branch TEXT NOT NULL DEFAULT '',
			bank_code TEXT NOT NULL DEFAULT '',
			payee TEXT NOT NULL DEFAULT '',
			account_holder TEXT NOT NULL DEFAULT '',
			account_number TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL,
			amount_words TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			exported INTEGER NOT NULL DEFAULT 0,
			export_date DATETIME,
			export_type TEXT NOT NULL DEFAULT '',
			added_date DATETIME NOT NULL,
			deposited_date DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cheques_number ON cheques(cheque_number)`,
		`CREATE INDEX IF NOT EXISTS idx_cheques_status ON cheques(status)`,
		`CREATE INDEX IF NOT EXISTS idx_cheques_cheque_date ON cheques(cheque_date)`,

		`CREATE TABLE IF NOT EXISTS banks (
			name TEXT PRIMARY KEY,
			position INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS branches (
			bank_name TEXT NOT NULL,
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (bank_name, name),
			FOREIGN KEY (bank_name) REFERENCES banks(name)
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS import_batches (
			id TEXT PRIMARY KEY,
			format TEXT NOT NULL,
			file_hash TEXT UNIQUE NOT NULL,
			record_count INTEGER NOT NULL,
			imported_at DATETIME NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
