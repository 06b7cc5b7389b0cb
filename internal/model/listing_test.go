package model

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexFloat_Unmarshal(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  float64
		valid bool
		err   bool
	}{
		{name: "number", in: `52.2297`, want: 52.2297, valid: true},
		{name: "string", in: `"52.22967560"`, want: 52.2296756, valid: true},
		{name: "padded string", in: `" 19.9 "`, want: 19.9, valid: true},
		{name: "null", in: `null`},
		{name: "empty string", in: `""`},
		{name: "garbage", in: `"north"`, err: true},
		{name: "bool", in: `true`, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexFloat
			err := json.Unmarshal([]byte(tt.in), &f)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.valid, f.Valid)
			assert.InDelta(t, tt.want, f.Value, 1e-9)
		})
	}
}

func TestFlexFloat_Marshal(t *testing.T) {
	b, err := json.Marshal(struct {
		A FlexFloat `json:"a"`
		B FlexFloat `json:"b"`
	}{A: Float(1.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(b))
}

func TestJobOffer_Decode(t *testing.T) {
	raw := `{
		"id": "acme-go-dev",
		"title": "Go Developer",
		"company_name": "Acme",
		"city": "Kraków",
		"latitude": "50.0647",
		"longitude": 19.945,
		"employment_types": [
			{"type": "b2b", "salary": {"from": 1000, "to": 5000, "currency": "usd"}},
			{"type": "permanent", "salary": null}
		]
	}`
	var o JobOffer
	require.NoError(t, json.Unmarshal([]byte(raw), &o))

	assert.Equal(t, "Acme", o.CompanyName)
	require.Len(t, o.EmploymentTypes, 2)
	require.NotNil(t, o.EmploymentTypes[0].Salary)
	assert.Equal(t, "usd", o.EmploymentTypes[0].Salary.Currency)
	assert.Nil(t, o.EmploymentTypes[1].Salary)

	c, err := o.Coordinate()
	require.NoError(t, err)
	assert.InDelta(t, 50.0647, c.Lat(), 1e-9)
	assert.InDelta(t, 19.945, c.Lon(), 1e-9)
}

func TestCoordinate_MissingData(t *testing.T) {
	_, err := JobOffer{ID: "x"}.Coordinate()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingData))

	lat := 52.0
	_, err = Rental{ID: "r", Latitude: &lat}.Coordinate()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingData))

	bad := 200.0
	_, err = Rental{ID: "r", Latitude: &bad, Longitude: &bad}.Coordinate()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingData))
}

func TestRental_Coordinate(t *testing.T) {
	lat, lon := 52.2, 21.0
	c, err := Rental{Latitude: &lat, Longitude: &lon}.Coordinate()
	require.NoError(t, err)
	assert.True(t, c.IsGeographic())
}
