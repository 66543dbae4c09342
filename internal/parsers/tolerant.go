// Package parsers turns sniffed text into a rectangular table of string
// cells, repairing structurally damaged rows instead of rejecting them.
//
// The tokenizer is quote-aware and honors backslash escapes, which the
// standard csv package does not support. Rows with too many fields are
// repaired by rejoining the excess into the last column (the usual cause is
// an unescaped delimiter inside a free-text final field); rows with too few
// are right-padded with empty strings. No type inference happens here;
// every cell stays a string until the merge engine coerces it.
package parsers

import (
	"errors"
	"strings"
)

// ErrImplausibleTable signals that the decoded text produced a single-column
// header over multi-column data rows, which means the delimiter sniff ran on
// a wrongly decoded prefix. The caller retries with the next encoding.
var ErrImplausibleTable = errors.New("single-column header over multi-column rows")

// Table is a parsed file: a header and rectangular data rows, all strings.
type Table struct {
	Header []string
	Rows   [][]string
}

// IsEmpty reports whether the table holds no usable data
func (t *Table) IsEmpty() bool {
	return len(t.Header) == 0 || len(t.Rows) == 0
}

// Parse tokenizes text with the given delimiter and normalizes the result
// into a rectangular table. Fully blank rows are dropped; the first
// non-blank row becomes the header (trimmed, BOM stripped).
func Parse(text string, delimiter rune) (*Table, error) {
	rows := tokenize(text, delimiter)

	nonBlank := rows[:0]
	for _, row := range rows {
		if !isBlank(row) {
			nonBlank = append(nonBlank, row)
		}
	}
	if len(nonBlank) == 0 {
		return &Table{}, nil
	}

	header := make([]string, len(nonBlank[0]))
	for i, cell := range nonBlank[0] {
		header[i] = cleanHeaderCell(cell)
	}
	n := len(header)
	if n == 0 {
		return &Table{}, nil
	}

	data := nonBlank[1:]
	if n == 1 && len(data) > 0 && len(data[0]) > 1 {
		return nil, ErrImplausibleTable
	}

	normalized := make([][]string, 0, len(data))
	for _, row := range data {
		normalized = append(normalized, repairRow(row, n, delimiter))
	}

	return &Table{Header: header, Rows: normalized}, nil
}

// repairRow forces a row to exactly n cells
func repairRow(row []string, n int, delimiter rune) []string {
	switch {
	case len(row) > n:
		repaired := make([]string, n)
		copy(repaired, row[:n-1])
		repaired[n-1] = strings.Join(row[n-1:], string(delimiter))
		return repaired
	case len(row) < n:
		repaired := make([]string, n)
		copy(repaired, row)
		return repaired
	default:
		return row
	}
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cleanHeaderCell(cell string) string {
	return strings.TrimSpace(strings.ReplaceAll(cell, "\ufeff", ""))
}

// tokenize splits text into rows of cells. Double quotes delimit fields and
// are escaped by doubling inside a quoted field; a backslash escapes the
// next rune anywhere. Newlines inside quotes belong to the cell.
func tokenize(text string, delimiter rune) [][]string {
	var (
		rows     [][]string
		row      []string
		cell     strings.Builder
		inQuotes bool
		escaped  bool
	)

	endCell := func() {
		row = append(row, cell.String())
		cell.Reset()
	}
	endRow := func() {
		endCell()
		rows = append(rows, row)
		row = nil
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if escaped {
			cell.WriteRune(r)
			escaped = false
			continue
		}

		switch {
		case r == '\\':
			escaped = true
		case r == '"':
			switch {
			case inQuotes && i+1 < len(runes) && runes[i+1] == '"':
				cell.WriteRune('"')
				i++
			case inQuotes:
				inQuotes = false
			case cell.Len() == 0:
				inQuotes = true
			default:
				// Quote in the middle of an unquoted cell: keep it.
				cell.WriteRune('"')
			}
		case r == delimiter && !inQuotes:
			endCell()
		case r == '\r' && !inQuotes:
			// CRLF handled at the following LF.
		case r == '\n' && !inQuotes:
			endRow()
		default:
			cell.WriteRune(r)
		}
	}

	if cell.Len() > 0 || len(row) > 0 {
		endRow()
	}
	return rows
}
