package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/chequepro/depositslip/internal/domain"
)

// ParseJSON accepts either a backup snapshot or a bare array of cheques.
func ParseJSON(data []byte) ([]domain.Cheque, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("unmarshal: empty document")
	}

	if trimmed[0] == '[' {
		var cheques []domain.Cheque
		if err := json.Unmarshal(trimmed, &cheques); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}
		return cheques, nil
	}

	var backup domain.Backup
	if err := json.Unmarshal(trimmed, &backup); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if backup.Version > domain.BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %d", backup.Version)
	}
	return backup.Cheques, nil
}
