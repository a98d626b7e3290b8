package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// ImportBatch records one ingested file.
type ImportBatch struct {
	ID          string    `json:"id"`
	Format      string    `json:"format"`
	FileHash    string    `json:"file_hash"`
	RecordCount int       `json:"record_count"`
	ImportedAt  time.Time `json:"imported_at"`
}

type ImportRepo struct {
	db *sql.DB
}

func NewImportRepo(db *sql.DB) *ImportRepo {
	return &ImportRepo{db: db}
}

// ExistsByHash checks whether a file with the given hash has already been
// imported.
func (r *ImportRepo) ExistsByHash(hash string) (bool, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM import_batches WHERE file_hash = ?", hash).Scan(&count)
	return count > 0, err
}

func (r *ImportRepo) Insert(b *ImportBatch) error {
	_, err := r.db.Exec(
		`INSERT INTO import_batches (id, format, file_hash, record_count, imported_at)
		VALUES (?,?,?,?,?)`,
		b.ID, b.Format, b.FileHash, b.RecordCount, b.ImportedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert import batch: %w", err)
	}
	return nil
}

func (r *ImportRepo) List() ([]ImportBatch, error) {
	rows, err := r.db.Query(
		"SELECT id, format, file_hash, record_count, imported_at FROM import_batches ORDER BY imported_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	defer rows.Close()

	var batches []ImportBatch
	for rows.Next() {
		var b ImportBatch
		var importedAt string
		if err := rows.Scan(&b.ID, &b.Format, &b.FileHash, &b.RecordCount, &importedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		b.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
