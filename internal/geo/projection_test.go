package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWebMercator(t *testing.T) {
	p, err := ToWebMercator(warsaw)
	require.NoError(t, err)

	assert.Equal(t, SRIDWebMercator, p.SRID())
	assert.InDelta(t, 2339067.40, p.X(), 0.01)
	assert.InDelta(t, 6841765.20, p.Y(), 0.01)
}

func TestToWebMercator_Origin(t *testing.T) {
	p, err := ToWebMercator(MustGeographic(0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0, p.X(), 1e-9)
	assert.InDelta(t, 0, p.Y(), 1e-9)
}

func TestProjection_RoundTrip(t *testing.T) {
	for _, c := range []Coordinate{warsaw, krakow, katowice, MustGeographic(-33.9, 151.2)} {
		p, err := ToWebMercator(c)
		require.NoError(t, err)

		back, err := ToGeographic(p)
		require.NoError(t, err)
		assert.InDelta(t, c.Lat(), back.Lat(), 1e-9)
		assert.InDelta(t, c.Lon(), back.Lon(), 1e-9)
	}
}

func TestProjection_WrongSystem(t *testing.T) {
	_, err := ToGeographic(warsaw)
	assert.Error(t, err)

	p := NewProjected(1, 2)
	_, err = ToWebMercator(p)
	assert.Error(t, err)
}

func TestToWebMercator_PolarRejected(t *testing.T) {
	_, err := ToWebMercator(MustGeographic(89, 0))
	assert.Error(t, err)
}

func TestScaleFactor(t *testing.T) {
	assert.InDelta(t, 1.0, ScaleFactor(0), 1e-12)
	assert.InDelta(t, 2.0, ScaleFactor(60), 1e-9)
	assert.InDelta(t, 1.63266, ScaleFactor(52.2297), 1e-4)
}
