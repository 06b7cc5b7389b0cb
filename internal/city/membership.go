package city

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/citymap/internal/geo"
)

// BelongsTo reports whether a geographic coordinate lies within radiusKM of
// the city's centroid using the given algorithm. A non-positive radiusKM
// falls back to the city's own radius.
func BelongsTo(c geo.Coordinate, ct City, radiusKM float64, mode geo.Mode, opts geo.MembershipOptions) (bool, error) {
	m, err := NewMembership(ct, radiusKM, mode, opts)
	if err != nil {
		return false, err
	}
	return m.Contains(c)
}

// NewMembership builds a reusable membership test for a city. Building it
// once per city avoids reprojecting the centroid for every record.
func NewMembership(ct City, radiusKM float64, mode geo.Mode, opts geo.MembershipOptions) (geo.Membership, error) {
	if radiusKM <= 0 {
		radiusKM = ct.RadiusKM
	}
	m, err := geo.NewMembership(mode, ct.Center, radiusKM, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "city: membership for %s", ct.Name)
	}
	return m, nil
}
