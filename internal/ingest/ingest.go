// Package ingest decodes uploaded contact files (CSV, XLSX, XLS) into a
// model.RawTable.
package ingest

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/header-mapper/internal/model"
)

// Format identifies a supported upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// emptyHeader names columns that carry data but have a blank header cell.
const emptyHeader = "__EMPTY"

// DetectFormat picks the decoder from the file extension.
func DetectFormat(filename string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch Format(ext) {
	case FormatCSV, FormatXLSX, FormatXLS:
		return Format(ext), nil
	default:
		return "", &UnsupportedFormatError{Ext: ext}
	}
}

// Ingest decodes data using the format implied by filename.
func Ingest(data []byte, filename string) (*model.RawTable, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	table, err := Decode(data, format)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ingest: decoded file",
		zap.String("file", filename),
		zap.String("format", string(format)),
		zap.Int("headers", len(table.Headers)),
		zap.Int("rows", len(table.Rows)),
	)
	return table, nil
}

// Decode decodes data of a known format.
func Decode(data []byte, format Format) (*model.RawTable, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(data)
	case FormatXLSX:
		return ReadXLSX(data)
	case FormatXLS:
		return ReadXLS(data)
	default:
		return nil, &UnsupportedFormatError{Ext: string(format)}
	}
}

// normalizeHeader trims and NFC-normalises a header cell so visually equal
// headers compare equal.
func normalizeHeader(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// uniqueHeaders names blank headers and suffixes repeats (Email, Email_1,
// Email_2) so the result is distinct and order-preserving.
func uniqueHeaders(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		if h == "" {
			h = emptyHeader
		}
		name := h
		for n := 1; seen[name]; n++ {
			name = h + "_" + strconv.Itoa(n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

// tableFromGrid converts spreadsheet cells (nil for empty) into a RawTable.
// The first non-blank row is the header row. Blank rows are skipped and
// empty cells are left out of the row map.
func tableFromGrid(grid [][]any) (*model.RawTable, error) {
	start := -1
	for i, r := range grid {
		if !blankCells(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, eris.Wrap(ErrEmptyFile, "sheet has no header row")
	}

	headerCells := grid[start]
	data := grid[start+1:]

	width := len(headerCells)
	for _, r := range data {
		if len(r) > width {
			width = len(r)
		}
	}

	// Keep columns that have a header or at least one value.
	var cols []int
	var raw []string
	for c := 0; c < width; c++ {
		name := ""
		if c < len(headerCells) {
			name = normalizeHeader(cellString(headerCells[c]))
		}
		if name == "" && !columnHasData(data, c) {
			continue
		}
		cols = append(cols, c)
		raw = append(raw, name)
	}

	table := &model.RawTable{Headers: uniqueHeaders(raw)}
	for _, r := range data {
		if blankCells(r) {
			continue
		}
		row := make(model.Row, len(cols))
		for j, c := range cols {
			if c < len(r) && r[c] != nil {
				row[table.Headers[j]] = r[c]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func blankCells(r []any) bool {
	for _, v := range r {
		if v != nil {
			return false
		}
	}
	return true
}

func columnHasData(rows [][]any, c int) bool {
	for _, r := range rows {
		if c < len(r) && r[c] != nil {
			return true
		}
	}
	return false
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
