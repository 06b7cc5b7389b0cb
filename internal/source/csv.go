package source

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/citymap/internal/model"
)

// rowReader feeds csvutil from any row producer, trimming cells and padding
// short rows to the header width.
type rowReader struct {
	next   func() ([]string, error)
	width  int
	header bool
}

func (r *rowReader) Read() ([]string, error) {
	for {
		record, err := r.next()
		if err != nil {
			return nil, err
		}

		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		if !r.header {
			r.header = true
			if len(record) > 0 {
				record[0] = strings.TrimPrefix(record[0], "\ufeff")
			}
			r.width = len(record)
			return record, nil
		}
		if blank(record) {
			continue
		}
		switch {
		case len(record) < r.width:
			record = append(record, make([]string, r.width-len(record))...)
		case len(record) > r.width:
			record = record[:r.width]
		}
		return record, nil
	}
}

func blank(record []string) bool {
	for _, f := range record {
		if f != "" {
			return false
		}
	}
	return true
}

// DecodeRentalsCSV decodes rental listings from a CSV stream with a header
// row. Columns are matched by name; unknown columns are ignored and empty
// numeric cells decode as absent.
func DecodeRentalsCSV(ctx context.Context, r io.Reader) ([]model.Rental, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return decodeRentals(ctx, &rowReader{next: reader.Read})
}

func decodeRentals(ctx context.Context, rows *rowReader) ([]model.Rental, error) {
	dec, err := csvutil.NewDecoder(rows)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	if !hasColumns(dec.Header(), "city", "latitude", "longitude") {
		return nil, eris.Errorf("csv: header %v lacks city/latitude/longitude", dec.Header())
	}

	var rentals []model.Rental
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}

		var rental model.Rental
		err := dec.Decode(&rental)
		if errors.Is(err, io.EOF) {
			return rentals, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "csv: decode rental %d", len(rentals)+1)
		}
		rentals = append(rentals, rental)
	}
}

func hasColumns(header []string, want ...string) bool {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[h] = true
	}
	for _, w := range want {
		if !seen[w] {
			return false
		}
	}
	return true
}
