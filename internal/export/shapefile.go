package export

import (
	"errors"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
)

// dbfColumn maps one Record value to a DBF field. DBF names are limited to
// ten characters.
type dbfColumn struct {
	field shp.Field
	size  int
	value func(Record) any
}

func floatOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

var dbfColumns = []dbfColumn{
	{shp.StringField("record_id", 36), 36, func(r Record) any { return r.RecordID }},
	{shp.StringField("kind", 8), 8, func(r Record) any { return r.Kind }},
	{shp.StringField("city", 32), 32, func(r Record) any { return r.City }},
	{shp.StringField("src_city", 32), 32, func(r Record) any { return r.SourceCity }},
	{shp.StringField("geohash", 12), 12, func(r Record) any { return r.Geohash }},
	{shp.FloatField("dist_km", 12, 4), 12, func(r Record) any { return r.DistanceKM }},
	{shp.StringField("zone", 8), 8, func(r Record) any { return r.Zone }},
	{shp.StringField("src_id", 64), 64, func(r Record) any { return r.ID }},
	{shp.StringField("title", 120), 120, func(r Record) any { return r.Title }},
	{shp.FloatField("price", 14, 2), 14, func(r Record) any { return floatOr(r.Price, 0) }},
	{shp.FloatField("sqm", 10, 2), 10, func(r Record) any { return floatOr(r.SquareMeters, 0) }},
	{shp.FloatField("salary", 14, 0), 14, func(r Record) any { return floatOr(r.Normalized, 0) }},
	{shp.StringField("currency", 3), 3, func(r Record) any { return r.Currency }},
	{shp.StringField("bucket", 40), 40, func(r Record) any { return r.BucketLabel }},
	{shp.NumberField("bucket_idx", 4), 4, func(r Record) any {
		if r.BucketIndex == nil {
			return -1
		}
		return *r.BucketIndex
	}},
}

// WriteShapefile writes records as a POINT shapefile (.shp, .shx, .dbf) at
// path. Missing numeric values are written as 0; bucket_idx is -1 for rows
// without a bucket. Text longer than its field is truncated.
func WriteShapefile(path string, records []Record) error {
	base := path
	if strings.HasSuffix(strings.ToLower(base), ".shp") {
		base = base[:len(base)-len(".shp")]
	}

	w, err := shp.Create(base+".shp", shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "shp: create %s", path)
	}
	if err := writeShapes(w, records); err != nil {
		w.Close()
		return err
	}
	w.Close()

	// go-shp names the attribute table base+"dbf", without the dot.
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "shp: rename %sdbf", base)
	}
	return nil
}

func writeShapes(w *shp.Writer, records []Record) error {
	fields := make([]shp.Field, len(dbfColumns))
	for i, c := range dbfColumns {
		fields[i] = c.field
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "shp: set fields")
	}

	for _, rec := range records {
		row := int(w.Write(&shp.Point{X: rec.Longitude, Y: rec.Latitude}))
		for i, c := range dbfColumns {
			v := c.value(rec)
			if s, ok := v.(string); ok {
				v = truncate(s, c.size)
			}
			if err := w.WriteAttribute(row, i, v); err != nil {
				return eris.Wrapf(err, "shp: record %s field %d", rec.RecordID, i)
			}
		}
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
