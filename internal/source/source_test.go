package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

const rentalsCSV = `id,city,type,squareMeters,rooms,floor,latitude,longitude,price
a1,warszawa,blockOfFlats,45.5,2,3,52.2310,21.0150,3500
a2,Kraków,,60,3,,50.0600,19.9400,
a3,gdansk,apartmentBuilding,30,1,1,,,2100
`

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "rentals.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestDecodeRentalsCSV(t *testing.T) {
	rentals, err := DecodeRentalsCSV(context.Background(), strings.NewReader(rentalsCSV))
	require.NoError(t, err)
	require.Len(t, rentals, 3)

	a1 := rentals[0]
	assert.Equal(t, "a1", a1.ID)
	assert.Equal(t, "warszawa", a1.City)
	require.NotNil(t, a1.SquareMeters)
	assert.Equal(t, 45.5, *a1.SquareMeters)
	require.NotNil(t, a1.Price)
	assert.Equal(t, 3500.0, *a1.Price)

	a2 := rentals[1]
	assert.Equal(t, "Kraków", a2.City)
	assert.Nil(t, a2.Price)
	assert.Empty(t, a2.Type)

	a3 := rentals[2]
	assert.Nil(t, a3.Latitude)
	assert.Nil(t, a3.Longitude)
}

func TestDecodeRentalsCSV_BOMAndBlankLines(t *testing.T) {
	in := "\ufeffcity,latitude,longitude\n katowice , 50.26 , 19.02 \n,,\n"
	rentals, err := DecodeRentalsCSV(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Equal(t, "katowice", rentals[0].City)
	require.NotNil(t, rentals[0].Latitude)
	assert.Equal(t, 50.26, *rentals[0].Latitude)
}

func TestDecodeRentalsCSV_Errors(t *testing.T) {
	_, err := DecodeRentalsCSV(context.Background(), strings.NewReader("id,price\n1,2\n"))
	assert.Error(t, err)

	_, err = DecodeRentalsCSV(context.Background(), strings.NewReader("city,latitude,longitude\nx,north,1\n"))
	assert.Error(t, err)

	rentals, err := DecodeRentalsCSV(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rentals)
}

func TestDecodeRentalsCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := DecodeRentalsCSV(ctx, strings.NewReader(rentalsCSV))
	require.Error(t, err)
	assert.True(t, eris.Is(err, context.Canceled))
}

func TestReadRentalsXLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"city", "latitude", "longitude", "price"},
			{"wroclaw", "51.1", "17.03", "2800"},
			{"krakow", "50.06", "19.94"},
		},
	})

	rentals, err := ReadRentalsXLSX(context.Background(), path, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rentals, 2)
	assert.Equal(t, "wroclaw", rentals[0].City)
	require.NotNil(t, rentals[0].Price)
	assert.Equal(t, 2800.0, *rentals[0].Price)
	assert.Nil(t, rentals[1].Price)
}

func TestReadRentalsXLSX_Sheet(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Rentals": {{"city", "latitude", "longitude"}, {"katowice", "50.2", "19.0"}},
	})

	rentals, err := ReadRentalsXLSX(context.Background(), path, XLSXOptions{SheetName: "Rentals"})
	require.NoError(t, err)
	assert.Len(t, rentals, 1)

	_, err = ReadRentalsXLSX(context.Background(), path, XLSXOptions{SheetName: "Missing"})
	assert.Error(t, err)

	_, err = ReadRentalsXLSX(context.Background(), path, XLSXOptions{SheetIndex: 3})
	assert.Error(t, err)
}

func TestDecodeJSONArray(t *testing.T) {
	type item struct {
		Name string `json:"name"`
	}

	items, err := DecodeJSONArray[item](context.Background(), strings.NewReader(`[{"name":"a"},{"name":"b"}]`))
	require.NoError(t, err)
	assert.Equal(t, []item{{Name: "a"}, {Name: "b"}}, items)

	items, err = DecodeJSONArray[item](context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = DecodeJSONArray[item](context.Background(), strings.NewReader(`{"name":"a"}`))
	assert.Error(t, err)

	_, err = DecodeJSONArray[item](context.Background(), strings.NewReader(`[{"name":1}]`))
	assert.Error(t, err)
}

func TestLoadJobOffers(t *testing.T) {
	path := writeTestFile(t, "offers.json", `[
		{"id":"j1","title":"Go Dev","city":"Warszawa","latitude":"52.23","longitude":"21.01",
		 "employment_types":[{"type":"b2b","salary":{"from":1000,"to":5000,"currency":"usd"}}]},
		{"id":"j2","title":"QA","city":"Kraków","latitude":50.06,"longitude":19.94,"employment_types":[]}
	]`)

	offers, err := LoadJobOffers(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "j1", offers[0].ID)
	assert.True(t, offers[0].Latitude.Valid)
	assert.Equal(t, 50.06, offers[1].Latitude.Value)
}

func TestLoad_Paths(t *testing.T) {
	ctx := context.Background()

	rentals, err := LoadRentals(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, rentals)

	offers, err := LoadJobOffers(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, offers)

	_, err = LoadRentals(ctx, "rentals.parquet")
	assert.True(t, eris.Is(err, ErrUnsupportedFormat))

	_, err = LoadJobOffers(ctx, "offers.csv")
	assert.True(t, eris.Is(err, ErrUnsupportedFormat))

	_, err = LoadRentals(ctx, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	path := writeTestFile(t, "rentals.CSV", rentalsCSV)
	rentals, err = LoadRentals(ctx, path)
	require.NoError(t, err)
	assert.Len(t, rentals, 3)
}
