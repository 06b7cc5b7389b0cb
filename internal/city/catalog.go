// Package city holds the fixed catalog of supported cities, alias
// resolution, and the radius membership test against a city centroid.
package city

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/citymap/internal/geo"
)

// DefaultRadiusKM is the inclusion radius used when a city has none.
const DefaultRadiusKM = 10.0

// ErrUnknownCity is returned when a label matches no canonical city or alias.
var ErrUnknownCity = eris.New("unknown city")

// City is a canonical city with its centroid and inclusion radius.
type City struct {
	Name     string         // canonical display name, e.g. "Kraków"
	Slug     string         // ASCII key, e.g. "krakow"
	Center   geo.Coordinate // WGS84 centroid
	RadiusKM float64
	Aliases  []string
}

// Catalog is an immutable, ordered set of cities indexed by folded alias.
type Catalog struct {
	cities []City
	index  map[string]int
}

// Default returns the four supported cities. Centroids and aliases follow
// the city lists the datasets were filtered with.
func Default() *Catalog {
	c, err := NewCatalog([]City{
		{
			Name:     "Warsaw",
			Slug:     "warsaw",
			Center:   geo.MustGeographic(52.2297, 21.0122),
			RadiusKM: DefaultRadiusKM,
			Aliases:  []string{"warszawa", "warsaw"},
		},
		{
			Name:     "Katowice",
			Slug:     "katowice",
			Center:   geo.MustGeographic(50.2599, 19.0216),
			RadiusKM: DefaultRadiusKM,
			Aliases:  []string{"katowice"},
		},
		{
			Name:     "Wrocław",
			Slug:     "wroclaw",
			Center:   geo.MustGeographic(51.1079, 17.0385),
			RadiusKM: DefaultRadiusKM,
			Aliases:  []string{"wrocław", "wroclaw"},
		},
		{
			Name:     "Kraków",
			Slug:     "krakow",
			Center:   geo.MustGeographic(50.0647, 19.9450),
			RadiusKM: DefaultRadiusKM,
			Aliases:  []string{"kraków", "krakow"},
		},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates cities and builds the alias index. The canonical name
// and slug always resolve to their city. Two cities may not share a folded
// alias.
func NewCatalog(cities []City) (*Catalog, error) {
	if len(cities) == 0 {
		return nil, eris.New("city: catalog is empty")
	}

	c := &Catalog{
		cities: make([]City, len(cities)),
		index:  make(map[string]int),
	}
	for i, ct := range cities {
		if ct.Name == "" {
			return nil, eris.Errorf("city: entry %d has no name", i)
		}
		if ct.Slug == "" {
			ct.Slug = Fold(ct.Name)
		}
		if !ct.Center.IsGeographic() {
			return nil, eris.Errorf("city: %s centroid must be WGS84", ct.Name)
		}
		if ct.RadiusKM < 0 {
			return nil, eris.Errorf("city: %s radius must not be negative", ct.Name)
		}
		if ct.RadiusKM == 0 {
			ct.RadiusKM = DefaultRadiusKM
		}
		ct.Aliases = append([]string(nil), ct.Aliases...)

		keys := append([]string{ct.Name, ct.Slug}, ct.Aliases...)
		for _, k := range keys {
			folded := Fold(k)
			if folded == "" {
				continue
			}
			if prev, ok := c.index[folded]; ok && prev != i {
				return nil, eris.Errorf("city: alias %q maps to both %s and %s", k, cities[prev].Name, ct.Name)
			}
			c.index[folded] = i
		}
		c.cities[i] = ct
	}
	return c, nil
}

// Cities returns the cities in catalog order.
func (c *Catalog) Cities() []City {
	out := make([]City, len(c.cities))
	copy(out, c.cities)
	return out
}

// Len returns the number of cities.
func (c *Catalog) Len() int { return len(c.cities) }

// At returns the city at catalog position i.
func (c *Catalog) At(i int) City { return c.cities[i] }

// Resolve maps a free-text label to its canonical city.
func (c *Catalog) Resolve(label string) (City, bool) {
	i, ok := c.IndexOf(label)
	if !ok {
		return City{}, false
	}
	return c.cities[i], true
}

// IndexOf maps a free-text label to its catalog position.
func (c *Catalog) IndexOf(label string) (int, bool) {
	i, ok := c.index[Fold(label)]
	return i, ok
}

// Lookup is Resolve with an ErrUnknownCity error for unmatched labels.
func (c *Catalog) Lookup(label string) (City, error) {
	ct, ok := c.Resolve(label)
	if !ok {
		return City{}, eris.Wrapf(ErrUnknownCity, "city: %q", label)
	}
	return ct, nil
}

// WithRadius returns a copy of the catalog with every radius replaced.
func (c *Catalog) WithRadius(radiusKM float64) (*Catalog, error) {
	if radiusKM <= 0 {
		return nil, eris.Errorf("city: radius must be positive, got %f", radiusKM)
	}
	cities := c.Cities()
	for i := range cities {
		cities[i].RadiusKM = radiusKM
	}
	return NewCatalog(cities)
}
