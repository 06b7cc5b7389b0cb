package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

const (
	// webMercatorRadius is the WGS84 semi-major axis used by EPSG:3857.
	webMercatorRadius = 6378137.0
	// MaxMercatorLat is the latitude at which Web Mercator becomes square.
	MaxMercatorLat = 85.05112878
)

// ToWebMercator reprojects a geographic coordinate to EPSG:3857.
func ToWebMercator(c Coordinate) (Coordinate, error) {
	if err := requireSRID(c, SRIDWGS84, "to web mercator"); err != nil {
		return Coordinate{}, err
	}
	if math.Abs(c.Lat()) > MaxMercatorLat {
		return Coordinate{}, eris.Errorf("geo: latitude %f outside web mercator bounds", c.Lat())
	}

	x := webMercatorRadius * radians(c.Lon())
	y := webMercatorRadius * math.Log(math.Tan(math.Pi/4+radians(c.Lat())/2))
	return NewProjected(x, y), nil
}

// ToGeographic reprojects an EPSG:3857 coordinate back to WGS84.
func ToGeographic(c Coordinate) (Coordinate, error) {
	if err := requireSRID(c, SRIDWebMercator, "to geographic"); err != nil {
		return Coordinate{}, err
	}

	lon := degrees(c.X() / webMercatorRadius)
	lat := degrees(2*math.Atan(math.Exp(c.Y()/webMercatorRadius)) - math.Pi/2)
	return NewGeographic(lat, lon)
}

// ScaleFactor returns the Web Mercator linear scale at the given latitude:
// one ground meter spans ScaleFactor(lat) projected meters.
func ScaleFactor(lat float64) float64 {
	return 1 / math.Cos(radians(lat))
}
