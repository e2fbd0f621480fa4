// Package xlsx reads import rows from and writes exports to Excel workbooks.
package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"healthlog/internal/normalize"
)

// ReadRows returns the data rows of the workbook's first sheet keyed by the
// header row. Numeric cells, including date-formatted ones, are returned as
// float64 serials; text cells as strings; boolean cells as bool. Empty
// cells are omitted and blank rows skipped.
func ReadRows(r io.Reader) ([]normalize.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, normalize.ErrNoRows
	}
	sheet := sheets[0]

	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(grid) < 2 {
		return nil, normalize.ErrNoRows
	}

	header := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]normalize.Row, 0, len(grid)-1)
	for ri, cells := range grid[1:] {
		row := normalize.Row{}
		for ci, raw := range cells {
			if ci >= len(header) || header[ci] == "" || strings.TrimSpace(raw) == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+2)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(sheet, cell)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", cell, err)
			}
			if v := cellValue(typ, raw); v != nil {
				row[header[ci]] = v
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, normalize.ErrNoRows
	}
	return rows, nil
}

func cellValue(typ excelize.CellType, raw string) any {
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return raw
	case excelize.CellTypeError:
		return nil
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return f
	}
	return raw
}
