package geo

import "math"

// EarthRadiusKM is the IUGG mean Earth radius.
const EarthRadiusKM = 6371.0088

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// HaversineKM returns the great-circle distance between two geographic
// coordinates in kilometers.
func HaversineKM(a, b Coordinate) (float64, error) {
	if err := requireSRID(a, SRIDWGS84, "haversine"); err != nil {
		return 0, err
	}
	if err := requireSRID(b, SRIDWGS84, "haversine"); err != nil {
		return 0, err
	}

	lat1, lat2 := radians(a.Lat()), radians(b.Lat())
	dLat := lat2 - lat1
	dLon := radians(b.Lon() - a.Lon())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Clamp against rounding past 1 for antipodal points.
	h = math.Min(1, h)
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(h)), nil
}

// Destination returns the point reached by travelling distanceKM along the
// initial bearing (degrees clockwise from north) on the sphere.
func Destination(from Coordinate, bearingDeg, distanceKM float64) (Coordinate, error) {
	if err := requireSRID(from, SRIDWGS84, "destination"); err != nil {
		return Coordinate{}, err
	}

	delta := distanceKM / EarthRadiusKM
	theta := radians(bearingDeg)
	lat1 := radians(from.Lat())
	lon1 := radians(from.Lon())

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) +
		math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	// Normalize longitude to [-180, 180].
	lon := math.Mod(degrees(lon2)+540, 360) - 180
	return NewGeographic(degrees(lat2), lon)
}
