package ingest

import (
	"bytes"

	"github.com/extrame/xls"
	"github.com/rotisserie/eris"

	"github.com/sells-group/header-mapper/internal/model"
)

// ReadXLS decodes the first sheet of a legacy BIFF (.xls) workbook. Cell
// values are taken as displayed strings.
func ReadXLS(data []byte) (*model.RawTable, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, eris.Wrap(err, "xls: open workbook")
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, eris.Wrap(ErrEmptyFile, "xls: workbook has no sheets")
	}

	grid := make([][]any, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]any, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			if s := row.Col(c); s != "" {
				cells[c] = s
			}
		}
		grid = append(grid, cells)
	}

	table, err := tableFromGrid(grid)
	if err != nil {
		return nil, eris.Wrapf(err, "xls: sheet %q", sheet.Name)
	}
	return table, nil
}
