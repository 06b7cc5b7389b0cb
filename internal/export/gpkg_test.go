package export

import (
	"context"
	"database/sql"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

func openGPKG(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	return db
}

func TestWriteGeoPackage(t *testing.T) {
	res := testResult()
	path := filepath.Join(t.TempDir(), "citymap.gpkg")
	require.NoError(t, WriteGeoPackage(context.Background(), path, Records(res), Legend(res)))

	db := openGPKG(t, path)

	var appID, version int
	require.NoError(t, db.QueryRow("PRAGMA application_id").Scan(&appID))
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 0x47504B47, appID)
	assert.Equal(t, 10300, version)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count))
	assert.Equal(t, 2, count)

	var (
		blob   []byte
		city   string
		salary sql.NullFloat64
		bucket sql.NullInt64
	)
	require.NoError(t, db.QueryRow(
		`SELECT geom, city, normalized_salary, bucket_index FROM records WHERE record_id = ?`, "rec-job",
	).Scan(&blob, &city, &salary, &bucket))
	assert.Equal(t, "Kraków", city)
	assert.True(t, salary.Valid)
	assert.Equal(t, 18135.0, salary.Float64)
	assert.Equal(t, int64(1), bucket.Int64)

	require.Greater(t, len(blob), 8)
	assert.Equal(t, "GP", string(blob[:2]))
	assert.Equal(t, uint32(4326), binary.LittleEndian.Uint32(blob[4:8]))
	g, err := wkb.Unmarshal(blob[8:])
	require.NoError(t, err)
	pt, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, []float64{19.95, 50.07}, pt.FlatCoords())

	require.NoError(t, db.QueryRow(
		`SELECT normalized_salary FROM records WHERE record_id = ?`, "rec-rental",
	).Scan(&salary))
	assert.False(t, salary.Valid)

	var minX, minY, maxX, maxY float64
	var srs int
	require.NoError(t, db.QueryRow(
		`SELECT min_x, min_y, max_x, max_y, srs_id FROM gpkg_contents WHERE table_name = 'records'`,
	).Scan(&minX, &minY, &maxX, &maxY, &srs))
	assert.Equal(t, 19.95, minX)
	assert.Equal(t, 50.07, minY)
	assert.Equal(t, 21.0, maxX)
	assert.Equal(t, 52.25, maxY)
	assert.Equal(t, 4326, srs)

	var geomType string
	require.NoError(t, db.QueryRow(
		`SELECT geometry_type_name FROM gpkg_geometry_columns WHERE table_name = 'records'`,
	).Scan(&geomType))
	assert.Equal(t, "POINT", geomType)

	var label string
	require.NoError(t, db.QueryRow(`SELECT label FROM legend WHERE "index" = 0`).Scan(&label))
	assert.Equal(t, "8000 - 10000 PLN", label)

	var dataType string
	require.NoError(t, db.QueryRow(
		`SELECT data_type FROM gpkg_contents WHERE table_name = 'legend'`,
	).Scan(&dataType))
	assert.Equal(t, "attributes", dataType)
}

func TestWriteGeoPackage_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citymap.gpkg")
	res := testResult()
	require.NoError(t, WriteGeoPackage(context.Background(), path, Records(res), nil))
	require.NoError(t, WriteGeoPackage(context.Background(), path, Records(res)[:1], nil))

	db := openGPKG(t, path)
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count))
	assert.Equal(t, 1, count)

	var tables int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'legend'`,
	).Scan(&tables))
	assert.Zero(t, tables)
}

func TestWriteGeoPackage_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gpkg")
	require.NoError(t, WriteGeoPackage(context.Background(), path, nil, nil))

	db := openGPKG(t, path)
	var minX sql.NullFloat64
	require.NoError(t, db.QueryRow(
		`SELECT min_x FROM gpkg_contents WHERE table_name = 'records'`,
	).Scan(&minX))
	assert.False(t, minX.Valid)
}

func TestGPKGColumns(t *testing.T) {
	cols, err := gpkgColumns(Record{}, "latitude", "longitude")
	require.NoError(t, err)

	types := make(map[string]string, len(cols))
	for _, c := range cols {
		types[c.name] = c.sqlType
	}
	assert.NotContains(t, types, "latitude")
	assert.Equal(t, "TEXT", types["record_id"])
	assert.Equal(t, "REAL", types["distance_km"])
	assert.Equal(t, "REAL", types["normalized_salary"])
	assert.Equal(t, "INTEGER", types["bucket_index"])
	assert.Equal(t, "BOOLEAN", types["salary_converted"])
	assert.Equal(t, "record_id", cols[0].name)
}
