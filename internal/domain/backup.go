package domain

import "time"

// Backup is the JSON snapshot written by the backup export and accepted by
// the JSON import.
type Backup struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Cheques    []Cheque          `json:"cheques"`
	Banks      []Bank            `json:"banks,omitempty"`
	Settings   map[string]string `json:"settings,omitempty"`
}

// BackupVersion is the current Backup format.
const BackupVersion = 1
