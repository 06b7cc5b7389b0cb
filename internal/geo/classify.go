package geo

// Proximity zones relative to a city's inclusion circle.
const (
	ZoneCore    = "core"
	ZoneInner   = "inner"
	ZoneFringe  = "fringe"
	ZoneOutside = "outside"
)

// Zone thresholds as fractions of the inclusion radius.
const (
	coreFraction  = 0.4
	innerFraction = 0.8
)

// Classify returns the proximity zone for a record relative to a city.
// Rules:
//   - core: member AND centroid distance <= 40% of radius
//   - inner: member AND centroid distance <= 80% of radius
//   - fringe: member, farther out
//   - outside: not a member (e.g. kept on its label alone)
func Classify(isWithin bool, centroidKM, radiusKM float64) string {
	if !isWithin {
		return ZoneOutside
	}
	switch {
	case centroidKM <= radiusKM*coreFraction:
		return ZoneCore
	case centroidKM <= radiusKM*innerFraction:
		return ZoneInner
	default:
		return ZoneFringe
	}
}
