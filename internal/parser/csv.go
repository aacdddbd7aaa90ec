package parser

import (
	"bytes"
	"encoding/csv"
	"strings"
)

// FormatCSV is the registry key for the CSV adapter.
const FormatCSV = "csv"

// Required statement columns, matched by normalized header name.
// Column order on the export is not fixed; banks shuffle it between
// export versions.
var requiredColumns = []string{
	"posting date",
	"transaction date",
	"description",
	"money in",
	"money out",
	"balance",
}

// Optional columns picked up when present.
const (
	colType     = "transaction type"
	colTypeAlt  = "type"
	colCategory = "category"
)

// CSVAdapter parses CSV statement exports with a header row.
type CSVAdapter struct{}

func (a *CSVAdapter) Format() string { return FormatCSV }

// Parse reads the header row, resolves column positions by name
// (case-insensitive), and emits one RawRecord per data row in file order.
func (a *CSVAdapter) Parse(data []byte) ([]RawRecord, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, newError(MalformedRow, -1, "reading CSV: %v", err)
	}
	if len(rows) == 0 {
		return nil, newError(MissingColumn, -1, "empty document, no header row")
	}

	cols, err := resolveColumns(rows[0])
	if err != nil {
		return nil, err
	}

	var records []RawRecord
	for i, row := range rows[1:] {
		if blankRow(row) {
			// Exports commonly end with an empty line; not an error.
			continue
		}

		rec := RawRecord{
			PostingDate:     cols.get(row, "posting date"),
			TransactionDate: cols.get(row, "transaction date"),
			Description:     cols.get(row, "description"),
			MoneyIn:         cols.get(row, "money in"),
			MoneyOut:        cols.get(row, "money out"),
			Balance:         cols.get(row, "balance"),
			Type:            cols.getType(row),
			Line:            len(records),
		}

		for _, field := range []struct {
			name  string
			value string
		}{
			{"money in", rec.MoneyIn},
			{"money out", rec.MoneyOut},
			{"balance", rec.Balance},
		} {
			if field.value != "" && !numericField(field.value) {
				return nil, newError(MalformedRow, i+1, "non-numeric %s value %q", field.name, field.value)
			}
		}

		records = append(records, rec)
	}

	return records, nil
}

// columnIndex maps normalized header names to field positions.
type columnIndex map[string]int

func (c columnIndex) get(row []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (c columnIndex) getType(row []string) string {
	if v := c.get(row, colType); v != "" {
		return v
	}
	return c.get(row, colTypeAlt)
}

func resolveColumns(header []string) (columnIndex, error) {
	cols := make(columnIndex, len(header))
	for i, h := range header {
		cols[normalizeHeader(h)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, newError(MissingColumn, -1, "missing required column(s): %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// normalizeHeader lowercases and collapses separators so that
// "Posting_Date", "posting date" and "POSTING  DATE" all match.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, "_", " ")
	h = strings.ReplaceAll(h, "-", " ")
	return strings.Join(strings.Fields(h), " ")
}

func blankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// numericField reports whether s looks like a decimal amount. Thousands
// separators and a leading sign are allowed; real parsing happens in the
// normalizer, this only rejects obviously broken rows early.
func numericField(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "-")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return false
	}
	dots := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
