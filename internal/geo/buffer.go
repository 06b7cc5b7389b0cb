package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// DefaultBufferSegments matches the common GIS default of 16 segments per
// quarter circle.
const DefaultBufferSegments = 64

// Buffer returns a regular polygon approximating a circle of radiusMeters
// around a projected center. The ring is closed and counter-clockwise.
func Buffer(center Coordinate, radiusMeters float64, segments int) (*geom.Polygon, error) {
	if err := requireSRID(center, SRIDWebMercator, "buffer"); err != nil {
		return nil, err
	}
	if radiusMeters <= 0 || math.IsNaN(radiusMeters) {
		return nil, eris.Errorf("geo: buffer radius must be positive, got %f", radiusMeters)
	}
	if segments < 8 {
		segments = DefaultBufferSegments
	}

	flat := make([]float64, 0, (segments+1)*2)
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		flat = append(flat,
			center.X()+radiusMeters*math.Cos(theta),
			center.Y()+radiusMeters*math.Sin(theta),
		)
	}
	flat = append(flat, flat[0], flat[1])

	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(SRIDWebMercator), nil
}

// Contains reports whether the polygon's outer ring contains c. Points on
// the boundary count as contained.
func Contains(poly *geom.Polygon, c Coordinate) (bool, error) {
	if poly == nil || poly.NumLinearRings() == 0 {
		return false, eris.New("geo: contains on empty polygon")
	}
	if poly.SRID() != c.SRID() {
		return false, eris.Errorf("geo: contains SRID mismatch (polygon EPSG:%d, point EPSG:%d)", poly.SRID(), c.SRID())
	}

	if !poly.Bounds().OverlapsPoint(poly.Layout(), c.Coord()) {
		return false, nil
	}
	shell := poly.LinearRing(0).FlatCoords()
	return xy.LocatePointInRing(poly.Layout(), c.Coord(), shell) != location.Exterior, nil
}
