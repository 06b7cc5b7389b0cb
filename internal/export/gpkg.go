package export

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	_ "modernc.org/sqlite"
)

// GeoPackage table names written by WriteGeoPackage.
const (
	GPKGRecordsTable = "records"
	GPKGLegendTable  = "legend"
)

const (
	gpkgApplicationID = 0x47504B47 // "GPKG"
	gpkgUserVersion   = 10300
	gpkgSRSID         = 4326
)

const gpkgSchema = `
CREATE TABLE gpkg_spatial_ref_sys (
	srs_name                 TEXT NOT NULL,
	srs_id                   INTEGER NOT NULL PRIMARY KEY,
	organization             TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition               TEXT NOT NULL,
	description              TEXT
);

CREATE TABLE gpkg_contents (
	table_name  TEXT NOT NULL PRIMARY KEY,
	data_type   TEXT NOT NULL,
	identifier  TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	min_x       DOUBLE,
	min_y       DOUBLE,
	max_x       DOUBLE,
	max_y       DOUBLE,
	srs_id      INTEGER,
	CONSTRAINT fk_gc_r_srs_id FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);

CREATE TABLE gpkg_geometry_columns (
	table_name         TEXT NOT NULL,
	column_name        TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id             INTEGER NOT NULL,
	z                  TINYINT NOT NULL,
	m                  TINYINT NOT NULL,
	CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name),
	CONSTRAINT fk_gc_tn FOREIGN KEY (table_name) REFERENCES gpkg_contents(table_name),
	CONSTRAINT fk_gc_srs FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
);

INSERT INTO gpkg_spatial_ref_sys VALUES
	('Undefined cartesian SRS', -1, 'NONE', -1, 'undefined', 'undefined cartesian coordinate reference system'),
	('Undefined geographic SRS', 0, 'NONE', 0, 'undefined', 'undefined geographic coordinate reference system'),
	('WGS 84 geodetic', 4326, 'EPSG', 4326,
	 'GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]]',
	 'longitude/latitude coordinates in decimal degrees on the WGS 84 spheroid');
`

// gpkgColumn is one attribute column derived from a csv struct tag.
type gpkgColumn struct {
	name    string
	sqlType string
}

// WriteGeoPackage writes records as a POINT feature table and, when present,
// legend entries as an attribute table into a new GeoPackage at path. An
// existing file is replaced.
func WriteGeoPackage(ctx context.Context, path string, records []Record, legend []LegendEntry) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "gpkg: remove %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrap(err, "gpkg: open")
	}
	defer db.Close() //nolint:errcheck

	for _, pragma := range []string{
		fmt.Sprintf("PRAGMA application_id=%d", gpkgApplicationID),
		fmt.Sprintf("PRAGMA user_version=%d", gpkgUserVersion),
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return eris.Wrapf(err, "gpkg: exec %s", pragma)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "gpkg: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, gpkgSchema); err != nil {
		return eris.Wrap(err, "gpkg: create metadata tables")
	}
	if err := writeFeatures(ctx, tx, records); err != nil {
		return err
	}
	if len(legend) > 0 {
		if err := writeAttributes(ctx, tx, GPKGLegendTable, legend, LegendEntry{}); err != nil {
			return err
		}
	}

	return eris.Wrap(tx.Commit(), "gpkg: commit")
}

func writeFeatures(ctx context.Context, tx *sql.Tx, records []Record) error {
	cols, err := gpkgColumns(Record{}, "latitude", "longitude")
	if err != nil {
		return err
	}

	defs := []string{"fid INTEGER PRIMARY KEY AUTOINCREMENT", "geom POINT"}
	for _, c := range cols {
		defs = append(defs, quoteIdent(c.name)+" "+c.sqlType)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)",
		quoteIdent(GPKGRecordsTable), strings.Join(defs, ", "))); err != nil {
		return eris.Wrap(err, "gpkg: create records table")
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(GPKGRecordsTable, append([]string{"geom"}, names...)))
	if err != nil {
		return eris.Wrap(err, "gpkg: prepare records insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, rec := range records {
		blob, err := gpkgPoint(rec.Longitude, rec.Latitude)
		if err != nil {
			return eris.Wrapf(err, "gpkg: geometry for %s", rec.RecordID)
		}
		args := append([]any{blob}, columnValues(rec, names)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "gpkg: insert %s", rec.RecordID)
		}
		minX, maxX = math.Min(minX, rec.Longitude), math.Max(maxX, rec.Longitude)
		minY, maxY = math.Min(minY, rec.Latitude), math.Max(maxY, rec.Latitude)
	}

	var bbox []any
	if len(records) > 0 {
		bbox = []any{minX, minY, maxX, maxY}
	} else {
		bbox = []any{nil, nil, nil, nil}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_contents (table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id)
		 VALUES (?, 'features', ?, ?, ?, ?, ?, ?)`,
		append(append([]any{GPKGRecordsTable, GPKGRecordsTable}, bbox...), gpkgSRSID)...,
	); err != nil {
		return eris.Wrap(err, "gpkg: register records table")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_geometry_columns VALUES (?, 'geom', 'POINT', ?, 0, 0)`,
		GPKGRecordsTable, gpkgSRSID,
	); err != nil {
		return eris.Wrap(err, "gpkg: register geometry column")
	}
	return nil
}

func writeAttributes[T any](ctx context.Context, tx *sql.Tx, table string, items []T, zero T) error {
	cols, err := gpkgColumns(zero)
	if err != nil {
		return err
	}

	defs := []string{"id INTEGER PRIMARY KEY AUTOINCREMENT"}
	names := make([]string, len(cols))
	for i, c := range cols {
		defs = append(defs, quoteIdent(c.name)+" "+c.sqlType)
		names[i] = c.name
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)",
		quoteIdent(table), strings.Join(defs, ", "))); err != nil {
		return eris.Wrapf(err, "gpkg: create %s table", table)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(table, names))
	if err != nil {
		return eris.Wrapf(err, "gpkg: prepare %s insert", table)
	}
	defer stmt.Close() //nolint:errcheck

	for i, item := range items {
		if _, err := stmt.ExecContext(ctx, columnValues(item, names)...); err != nil {
			return eris.Wrapf(err, "gpkg: insert %s row %d", table, i)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_contents (table_name, data_type, identifier) VALUES (?, 'attributes', ?)`,
		table, table,
	); err != nil {
		return eris.Wrapf(err, "gpkg: register %s table", table)
	}
	return nil
}

// gpkgColumns maps the csv-tagged fields of zero to SQLite column types,
// skipping the named columns.
func gpkgColumns(zero any, skip ...string) ([]gpkgColumn, error) {
	header, err := csvutil.Header(zero, "csv")
	if err != nil {
		return nil, eris.Wrap(err, "gpkg: header")
	}
	types := make(map[string]reflect.Type)
	t := reflect.TypeOf(zero)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		ft := f.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		types[tagName(f.Tag.Get("csv"))] = ft
	}

	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	var cols []gpkgColumn
	for _, h := range header {
		if skipped[h] {
			continue
		}
		sqlType := "TEXT"
		switch types[h].Kind() {
		case reflect.Float32, reflect.Float64:
			sqlType = "REAL"
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			sqlType = "INTEGER"
		case reflect.Bool:
			sqlType = "BOOLEAN"
		}
		cols = append(cols, gpkgColumn{name: h, sqlType: sqlType})
	}
	return cols, nil
}

// gpkgPoint encodes a WGS84 point as a GeoPackage geometry blob: the "GP"
// header with a little-endian flag and no envelope, then WKB.
func gpkgPoint(lon, lat float64) ([]byte, error) {
	body, err := wkb.Marshal(geom.NewPointFlat(geom.XY, []float64{lon, lat}), wkb.NDR)
	if err != nil {
		return nil, err
	}
	blob := make([]byte, 8, 8+len(body))
	blob[0], blob[1] = 'G', 'P'
	blob[2] = 0    // version 1
	blob[3] = 0x01 // little-endian, no envelope
	binary.LittleEndian.PutUint32(blob[4:], uint32(gpkgSRSID))
	return append(blob, body...), nil
}

func insertSQL(table string, cols []string) string {
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
