package geo

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Mode selects the radius membership algorithm.
type Mode string

// Membership algorithms.
const (
	// ModeGreatCircle compares the haversine distance to the radius.
	ModeGreatCircle Mode = "great_circle"
	// ModeProjectedBuffer tests containment in a circular buffer built in
	// Web Mercator.
	ModeProjectedBuffer Mode = "projected_buffer"
)

// ParseMode parses a mode name. Hyphens and case are ignored.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch m {
	case ModeGreatCircle, ModeProjectedBuffer:
		return m, nil
	case "":
		return ModeGreatCircle, nil
	}
	return "", eris.Errorf("geo: unknown membership mode %q", s)
}

// MembershipOptions tunes the projected buffer. Ignored for great-circle.
type MembershipOptions struct {
	// ScaleCorrection multiplies the buffer radius by the Web Mercator scale
	// factor at the center latitude so the buffer covers radiusKM of ground.
	ScaleCorrection bool
	// Segments is the number of buffer vertices (0 = DefaultBufferSegments).
	Segments int
}

// Membership decides whether a geographic coordinate lies within a fixed
// radius of a center.
type Membership interface {
	Mode() Mode
	Contains(c Coordinate) (bool, error)
}

// NewMembership builds a membership test around a geographic center.
// Both algorithms are inclusive at the radius.
func NewMembership(mode Mode, center Coordinate, radiusKM float64, opts MembershipOptions) (Membership, error) {
	if err := requireSRID(center, SRIDWGS84, "membership center"); err != nil {
		return nil, err
	}
	if radiusKM <= 0 {
		return nil, eris.Errorf("geo: membership radius must be positive, got %f", radiusKM)
	}

	switch mode {
	case ModeGreatCircle:
		return &greatCircle{center: center, radiusKM: radiusKM}, nil
	case ModeProjectedBuffer:
		projected, err := ToWebMercator(center)
		if err != nil {
			return nil, eris.Wrap(err, "geo: project membership center")
		}
		meters := radiusKM * 1000
		if opts.ScaleCorrection {
			meters *= ScaleFactor(center.Lat())
		}
		poly, err := Buffer(projected, meters, opts.Segments)
		if err != nil {
			return nil, err
		}
		return &projectedBuffer{buffer: poly}, nil
	}
	return nil, eris.Errorf("geo: unknown membership mode %q", mode)
}

type greatCircle struct {
	center   Coordinate
	radiusKM float64
}

func (g *greatCircle) Mode() Mode { return ModeGreatCircle }

func (g *greatCircle) Contains(c Coordinate) (bool, error) {
	d, err := HaversineKM(g.center, c)
	if err != nil {
		return false, err
	}
	return d <= g.radiusKM, nil
}

type projectedBuffer struct {
	buffer *geom.Polygon
}

func (p *projectedBuffer) Mode() Mode { return ModeProjectedBuffer }

func (p *projectedBuffer) Contains(c Coordinate) (bool, error) {
	projected, err := ToWebMercator(c)
	if err != nil {
		return false, err
	}
	return Contains(p.buffer, projected)
}
