package export

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// WriteCSV writes records with a header row. An empty slice still produces
// the header.
func WriteCSV(w io.Writer, records []Record) error {
	return encodeCSV(w, records, Record{})
}

// WriteLegendCSV writes legend entries with a header row.
func WriteLegendCSV(w io.Writer, entries []LegendEntry) error {
	return encodeCSV(w, entries, LegendEntry{})
}

func encodeCSV[T any](w io.Writer, items []T, zero T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(items) == 0 {
		if err := enc.EncodeHeader(zero); err != nil {
			return eris.Wrap(err, "csv: encode header")
		}
	}
	for i := range items {
		if err := enc.Encode(items[i]); err != nil {
			return eris.Wrapf(err, "csv: encode row %d", i)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(records), "json: encode records")
}
