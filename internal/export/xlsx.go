package export

import (
	"reflect"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet names written by WriteXLSX.
const (
	SheetRecords = "records"
	SheetLegend  = "legend"
)

// WriteXLSX writes records to a "records" sheet and, when present, legend
// entries to a "legend" sheet. Columns follow the CSV header.
func WriteXLSX(path string, records []Record, legend []LegendEntry) error {
	f := xlsx.NewFile()

	if err := addSheet(f, SheetRecords, records, Record{}); err != nil {
		return err
	}
	if len(legend) > 0 {
		if err := addSheet(f, SheetLegend, legend, LegendEntry{}); err != nil {
			return err
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func addSheet[T any](f *xlsx.File, name string, items []T, zero T) error {
	header, err := csvutil.Header(zero, "csv")
	if err != nil {
		return eris.Wrapf(err, "xlsx: header for %s", name)
	}

	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "xlsx: add sheet %s", name)
	}

	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}

	for _, item := range items {
		values := columnValues(item, header)
		row := sheet.AddRow()
		for _, v := range values {
			setCell(row.AddCell(), v)
		}
	}
	return nil
}

// columnValues returns item's field values in header order, matched by the
// csv tag name.
func columnValues(item any, header []string) []any {
	v := reflect.ValueOf(item)
	t := v.Type()

	byName := make(map[string]reflect.Value, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		byName[tagName(t.Field(i).Tag.Get("csv"))] = v.Field(i)
	}

	out := make([]any, len(header))
	for i, h := range header {
		fv, ok := byName[h]
		if !ok {
			continue
		}
		if fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		out[i] = fv.Interface()
	}
	return out
}

// tagName returns the name part of a struct tag value.
func tagName(tag string) string {
	if i := strings.IndexByte(tag, ','); i >= 0 {
		return tag[:i]
	}
	return tag
}

func setCell(c *xlsx.Cell, v any) {
	switch x := v.(type) {
	case nil:
		c.SetString("")
	case string:
		c.SetString(x)
	case float64:
		c.SetFloat(x)
	case int:
		c.SetInt(x)
	case bool:
		c.SetBool(x)
	default:
		c.SetValue(x)
	}
}
