// Package report turns a validated mapping into the detection report shown
// after an upload: one entry per mapped column with a readable label, a
// confidence band and a few sample values.
package report

import (
	"math"
	"strings"

	"github.com/sells-group/header-mapper/internal/mapping"
	"github.com/sells-group/header-mapper/internal/model"
)

const (
	sampleRows = 3

	highBand   = 90
	mediumBand = 80
)

// Band groups confidence percentages for display.
type Band string

// Confidence bands.
const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// BandFor returns the band of a confidence percentage.
func BandFor(percent int) Band {
	switch {
	case percent >= highBand:
		return BandHigh
	case percent >= mediumBand:
		return BandMedium
	default:
		return BandLow
	}
}

// Entry describes one mapped column.
type Entry struct {
	Header     string               `json:"header"`
	MappedTo   model.CanonicalField `json:"mappedTo"`
	Label      string               `json:"label"`
	Custom     bool                 `json:"custom"`
	Confidence int                  `json:"confidence"`
	Band       Band                 `json:"band"`
	Samples    []string             `json:"samples"`
}

// Report is the detection report for an uploaded file.
type Report struct {
	Entries   []Entry     `json:"entries"`
	Stats     model.Stats `json:"stats"`
	Unmapped  []string    `json:"unmapped"`
	Ambiguous []string    `json:"ambiguous,omitempty"`
	Notes     string      `json:"notes,omitempty"`
}

// Build assembles the report for table and its mapping. Headers mapped to
// the unmapped sentinel are left out of Entries; entries follow the
// column order of the table.
func Build(table *model.RawTable, result *model.MappingResult) Report {
	r := Report{
		Entries:  []Entry{},
		Stats:    mapping.Summarize(result),
		Unmapped: []string{},
	}
	if result == nil {
		return r
	}

	for _, h := range table.Headers {
		m, ok := result.Mapping[h]
		if !ok || m.MappedTo == model.FieldUnmapped {
			continue
		}
		pct := Percent(m.Confidence)
		r.Entries = append(r.Entries, Entry{
			Header:     h,
			MappedTo:   m.MappedTo,
			Label:      m.MappedTo.Label(),
			Custom:     m.MappedTo.IsCustom(),
			Confidence: pct,
			Band:       BandFor(pct),
			Samples:    samples(table, h),
		})
	}

	r.Unmapped = append(r.Unmapped, result.UnmappedHeaders...)
	r.Ambiguous = result.AmbiguousHeaders
	r.Notes = result.Notes
	return r
}

// Percent converts a confidence in [0,1] to a rounded percentage.
func Percent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

func samples(table *model.RawTable, header string) []string {
	out := []string{}
	for i := 0; i < sampleRows && i < len(table.Rows); i++ {
		if v := strings.TrimSpace(table.Value(i, header)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
