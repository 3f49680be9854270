package ingest

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/header-mapper/internal/model"
)

// ReadXLSX decodes the first sheet of an Office Open XML workbook. Numeric
// cells are kept as float64, everything else as its displayed string.
func ReadXLSX(data []byte) (*model.RawTable, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Wrap(ErrEmptyFile, "xlsx: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	grid := make([][]any, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		grid = append(grid, rowToValues(row))
	}

	table, err := tableFromGrid(grid)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: sheet %q", sheet.Name)
	}
	return table, nil
}

func rowToValues(row *xlsx.Row) []any {
	cells := make([]any, len(row.Cells))
	for j, cell := range row.Cells {
		if cell == nil {
			continue
		}
		if cell.Type() == xlsx.CellTypeNumeric {
			if v, err := cell.Float(); err == nil {
				cells[j] = v
				continue
			}
		}
		if s := cell.String(); s != "" {
			cells[j] = s
		}
	}
	return cells
}
