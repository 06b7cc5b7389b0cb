// Package geo provides coordinates tagged with their reference system,
// great-circle distance, Web Mercator reprojection, and planar buffers.
package geo

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Supported spatial reference identifiers.
const (
	SRIDWGS84       = 4326 // geographic, degrees
	SRIDWebMercator = 3857 // projected, meters
)

// Coordinate is an immutable point tagged with its SRID. For SRIDWGS84, X is
// longitude and Y is latitude; for SRIDWebMercator both are meters.
type Coordinate struct {
	srid int
	x, y float64
}

// NewGeographic returns a WGS84 coordinate after range-checking lat/lon.
func NewGeographic(lat, lon float64) (Coordinate, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return Coordinate{}, eris.New("geo: coordinate is NaN")
	}
	if lat < -90 || lat > 90 {
		return Coordinate{}, eris.Errorf("geo: latitude %f out of range", lat)
	}
	if lon < -180 || lon > 180 {
		return Coordinate{}, eris.Errorf("geo: longitude %f out of range", lon)
	}
	return Coordinate{srid: SRIDWGS84, x: lon, y: lat}, nil
}

// MustGeographic is NewGeographic for compile-time constants. It panics on
// an invalid coordinate.
func MustGeographic(lat, lon float64) Coordinate {
	c, err := NewGeographic(lat, lon)
	if err != nil {
		panic(err)
	}
	return c
}

// NewProjected returns a Web Mercator coordinate in meters.
func NewProjected(x, y float64) Coordinate {
	return Coordinate{srid: SRIDWebMercator, x: x, y: y}
}

// SRID returns the reference system identifier.
func (c Coordinate) SRID() int { return c.srid }

// IsZero reports whether c was never constructed.
func (c Coordinate) IsZero() bool { return c.srid == 0 }

// IsGeographic reports whether c is in WGS84.
func (c Coordinate) IsGeographic() bool { return c.srid == SRIDWGS84 }

// IsProjected reports whether c is in Web Mercator.
func (c Coordinate) IsProjected() bool { return c.srid == SRIDWebMercator }

// Lat returns the latitude of a geographic coordinate.
func (c Coordinate) Lat() float64 { return c.y }

// Lon returns the longitude of a geographic coordinate.
func (c Coordinate) Lon() float64 { return c.x }

// X returns the first ordinate (longitude or easting).
func (c Coordinate) X() float64 { return c.x }

// Y returns the second ordinate (latitude or northing).
func (c Coordinate) Y() float64 { return c.y }

// Point returns a fresh go-geom point carrying the SRID.
func (c Coordinate) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.x, c.y}).SetSRID(c.srid)
}

// Coord returns the go-geom coordinate pair.
func (c Coordinate) Coord() geom.Coord {
	return geom.Coord{c.x, c.y}
}

func (c Coordinate) String() string {
	switch c.srid {
	case SRIDWGS84:
		return fmt.Sprintf("EPSG:4326(%.6f, %.6f)", c.y, c.x)
	case SRIDWebMercator:
		return fmt.Sprintf("EPSG:3857(%.2f, %.2f)", c.x, c.y)
	default:
		return "EPSG:0(empty)"
	}
}

func requireSRID(c Coordinate, srid int, op string) error {
	if c.srid != srid {
		return eris.Errorf("geo: %s requires EPSG:%d, got EPSG:%d", op, srid, c.srid)
	}
	return nil
}
