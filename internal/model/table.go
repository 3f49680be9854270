package model

// Row is one decoded data row keyed by header. Values are string or float64;
// cells that were empty in a spreadsheet are absent.
type Row map[string]any

// RawTable is the canonical in-memory form of an ingested contact file.
// Headers are distinct and follow source column order. Every key of every
// row is one of Headers. A RawTable is not modified after ingestion.
type RawTable struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// Value returns the value for header in row i as a string. Missing values
// and out-of-range rows yield "".
func (t *RawTable) Value(i int, header string) string {
	if i < 0 || i >= len(t.Rows) {
		return ""
	}
	switch v := t.Rows[i][header].(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	default:
		return ""
	}
}

// HasHeader reports whether h is one of the table's headers.
func (t *RawTable) HasHeader(h string) bool {
	for _, x := range t.Headers {
		if x == h {
			return true
		}
	}
	return false
}
