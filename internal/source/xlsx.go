package source

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/citymap/internal/model"
)

// XLSXOptions selects the worksheet holding the rentals table.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadRentalsXLSX decodes rental listings from a worksheet whose first row is
// the header, with the same column rules as DecodeRentalsCSV.
func ReadRentalsXLSX(ctx context.Context, path string, opts XLSXOptions) ([]model.Rental, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	i := 0
	next := func() ([]string, error) {
		if i >= len(sheet.Rows) {
			return nil, io.EOF
		}
		row := sheet.Rows[i]
		i++
		return rowToStrings(row), nil
	}
	return decodeRentals(ctx, &rowReader{next: next})
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
