package ingestion

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// ParseCSV reads a comma separated sheet whose first line is the header.
// Rows may have fewer fields than the header.
func ParseCSV(data []byte) ([]sheetRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	table, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("read header: empty file")
	}
	return rowsFromTable(table), nil
}
