package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/header-mapper/internal/model"
)

// ReadCSV decodes comma-delimited text. Quoted fields may contain commas,
// quotes and newlines. A UTF-8 or UTF-16 byte order mark is honoured.
// The first non-blank record is the header row; every later non-blank
// record becomes a row with one trimmed value per header, missing trailing
// fields defaulting to "".
func ReadCSV(data []byte) (*model.RawTable, error) {
	src := transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var table *model.RawTable
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "csv: read record %d", line)
		}
		if blankRecord(record) {
			continue
		}

		if table == nil {
			raw := make([]string, len(record))
			for i, h := range record {
				raw[i] = normalizeHeader(h)
			}
			table = &model.RawTable{Headers: uniqueHeaders(raw)}
			continue
		}

		row := make(model.Row, len(table.Headers))
		for i, h := range table.Headers {
			v := ""
			if i < len(record) {
				v = strings.TrimSpace(record[i])
			}
			row[h] = v
		}
		table.Rows = append(table.Rows, row)
	}

	if table == nil {
		return nil, eris.Wrap(ErrEmptyFile, "csv: no non-blank lines")
	}
	return table, nil
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
