// Package fetcher parses uploaded tabular files (CSV, XLSX) into a uniform
// in-memory table for email extraction.
package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a parsed tabular upload: a header row and data rows. Rows may be
// ragged; missing cells read as empty strings.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Cell returns the value at (row, col), or "" when the row is short.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Column returns the values of one column across all rows, in row order.
func (t *Table) Column(col int) []string {
	out := make([]string, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Cell(i, col)
	}
	return out
}

// ParseUpload parses an uploaded file by extension. CSV and XLSX are
// supported; anything else is a validation fault.
func ParseUpload(filename string, data []byte) (*Table, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		return ParseCSV(data)
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		return ParseXLSX(data)
	default:
		return nil, eris.Errorf("fetcher: unsupported file type %q (expected .csv or .xlsx)", filename)
	}
}
