package ingest

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Sentinel errors for the ingestion stage. Both are terminal for a
// submission and are raised before any service call.
var (
	ErrUnsupportedFormat = eris.New("unsupported file format")
	ErrEmptyFile         = eris.New("file is empty")
)

// UnsupportedFormatError reports the rejected file extension.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported file format: missing extension (expected .csv, .xlsx or .xls)"
	}
	return fmt.Sprintf("unsupported file format %q (expected .csv, .xlsx or .xls)", "."+e.Ext)
}

// Is matches ErrUnsupportedFormat.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}
