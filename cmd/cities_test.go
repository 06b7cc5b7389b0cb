//go:build !integration

package main

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/citymap/internal/city"
)

func TestWriteCitiesTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCitiesTable(&buf, city.Default().Cities()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[2], "Warsaw"))
	assert.Contains(t, lines[2], "warszawa, warsaw")
}

func TestWriteCitiesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCitiesCSV(&buf, city.Default().Cities()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"name", "slug", "lat", "lon", "radius_km", "aliases"}, rows[0])
	assert.Equal(t, "Kraków", rows[4][0])
	assert.Equal(t, "50.0647", rows[4][2])
	assert.Equal(t, "10", rows[4][4])
}
