package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// WriteGeoJSON writes records as a FeatureCollection of WGS84 points. Every
// Record column except the coordinates becomes a feature property.
func WriteGeoJSON(w io.Writer, records []Record) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(records))}
	for _, rec := range records {
		props, err := properties(rec)
		if err != nil {
			return err
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         rec.RecordID,
			Geometry:   geom.NewPointFlat(geom.XY, []float64{rec.Longitude, rec.Latitude}),
			Properties: props,
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "geojson: marshal feature collection")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "geojson: write")
	}
	return nil
}

func properties(rec Record) (map[string]any, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "geojson: marshal properties")
	}
	var props map[string]any
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, eris.Wrap(err, "geojson: unmarshal properties")
	}
	delete(props, "latitude")
	delete(props, "longitude")
	return props, nil
}
