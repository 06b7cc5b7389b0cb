// Package source loads rental listings and job offers from CSV, XLSX, and
// JSON files.
package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/citymap/internal/model"
)

// ErrUnsupportedFormat is returned for input files whose extension has no
// reader.
var ErrUnsupportedFormat = eris.New("unsupported input format")

// LoadRentals reads rental listings from a .csv or .xlsx file. An empty path
// yields no rentals.
func LoadRentals(ctx context.Context, path string) ([]model.Rental, error) {
	if path == "" {
		return nil, nil
	}

	var (
		rentals []model.Rental
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "source: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		rentals, err = DecodeRentalsCSV(ctx, f)
	case ".xlsx":
		rentals, err = ReadRentalsXLSX(ctx, path, XLSXOptions{})
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "source: rentals %q", ext)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "source: load rentals from %s", path)
	}

	zap.L().Info("source: loaded rentals",
		zap.String("path", path),
		zap.Int("count", len(rentals)),
	)
	return rentals, nil
}

// LoadJobOffers reads job offers from a JSON array file. An empty path yields
// no offers.
func LoadJobOffers(ctx context.Context, path string) ([]model.JobOffer, error) {
	if path == "" {
		return nil, nil
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return nil, eris.Wrapf(ErrUnsupportedFormat, "source: job offers %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	offers, err := DecodeJSONArray[model.JobOffer](ctx, f)
	if err != nil {
		return nil, eris.Wrapf(err, "source: load job offers from %s", path)
	}

	zap.L().Info("source: loaded job offers",
		zap.String("path", path),
		zap.Int("count", len(offers)),
	)
	return offers, nil
}
