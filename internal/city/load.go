package city

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/citymap/internal/geo"
)

// catalogFile is the on-disk layout of a custom city catalog:
//
//	cities:
//	  - name: Gdańsk
//	    slug: gdansk
//	    lat: 54.352
//	    lon: 18.6466
//	    radius_km: 15
//	    aliases: [gdańsk, gdansk, danzig]
type catalogFile struct {
	Cities []struct {
		Name     string   `yaml:"name"`
		Slug     string   `yaml:"slug"`
		Lat      *float64 `yaml:"lat"`
		Lon      *float64 `yaml:"lon"`
		RadiusKM float64  `yaml:"radius_km"`
		Aliases  []string `yaml:"aliases"`
	} `yaml:"cities"`
}

// LoadCatalog reads a YAML city catalog. An empty path returns Default().
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "city: read catalog")
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML city catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "city: parse catalog")
	}

	cities := make([]City, 0, len(f.Cities))
	for i, e := range f.Cities {
		if e.Lat == nil || e.Lon == nil {
			return nil, eris.Errorf("city: entry %d (%s) is missing lat/lon", i, e.Name)
		}
		center, err := geo.NewGeographic(*e.Lat, *e.Lon)
		if err != nil {
			return nil, eris.Wrapf(err, "city: entry %d (%s)", i, e.Name)
		}
		cities = append(cities, City{
			Name:     e.Name,
			Slug:     e.Slug,
			Center:   center,
			RadiusKM: e.RadiusKM,
			Aliases:  e.Aliases,
		})
	}
	return NewCatalog(cities)
}
