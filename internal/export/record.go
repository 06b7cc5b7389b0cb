// Package export writes pipeline results as flat tables and point layers for
// map renderers.
package export

import (
	"sort"

	"github.com/sells-group/citymap/internal/bucket"
	"github.com/sells-group/citymap/internal/pipeline"
)

// Record is one output row. Rental and job columns are empty for the other
// kind.
type Record struct {
	RecordID   string  `csv:"record_id" json:"record_id"`
	Kind       string  `csv:"kind" json:"kind"`
	City       string  `csv:"city" json:"city"`
	CitySlug   string  `csv:"city_slug" json:"city_slug"`
	SourceCity string  `csv:"source_city" json:"source_city"`
	Latitude   float64 `csv:"latitude" json:"latitude"`
	Longitude  float64 `csv:"longitude" json:"longitude"`
	Geohash    string  `csv:"geohash" json:"geohash"`
	DistanceKM float64 `csv:"distance_km" json:"distance_km"`
	Zone       string  `csv:"zone" json:"zone"`
	ID         string  `csv:"id" json:"id"`

	// Rentals.
	Type         string   `csv:"type,omitempty" json:"type,omitempty"`
	SquareMeters *float64 `csv:"squareMeters,omitempty" json:"squareMeters,omitempty"`
	Rooms        *float64 `csv:"rooms,omitempty" json:"rooms,omitempty"`
	Price        *float64 `csv:"price,omitempty" json:"price,omitempty"`

	// Jobs.
	Title           string   `csv:"title,omitempty" json:"title,omitempty"`
	CompanyName     string   `csv:"company_name,omitempty" json:"company_name,omitempty"`
	Street          string   `csv:"street,omitempty" json:"street,omitempty"`
	ExperienceLevel string   `csv:"experience_level,omitempty" json:"experience_level,omitempty"`
	WorkplaceType   string   `csv:"workplace_type,omitempty" json:"workplace_type,omitempty"`
	EmploymentType  string   `csv:"employment_type,omitempty" json:"employment_type,omitempty"`
	SalaryFrom      *float64 `csv:"salary_from,omitempty" json:"salary_from,omitempty"`
	SalaryTo        *float64 `csv:"salary_to,omitempty" json:"salary_to,omitempty"`
	Currency        string   `csv:"currency,omitempty" json:"currency,omitempty"`
	AvgSalary       *float64 `csv:"avg_salary,omitempty" json:"avg_salary,omitempty"`
	Normalized      *float64 `csv:"normalized_salary,omitempty" json:"normalized_salary,omitempty"`
	Converted       *bool    `csv:"salary_converted,omitempty" json:"salary_converted,omitempty"`
	BucketLabel     string   `csv:"salary_bucket_label,omitempty" json:"salary_bucket_label,omitempty"`
	BucketIndex     *int     `csv:"bucket_index,omitempty" json:"bucket_index,omitempty"`
}

// Records flattens result rows in their pipeline order.
func Records(res *pipeline.Result) []Record {
	out := make([]Record, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, recordFrom(row))
	}
	return out
}

func recordFrom(row pipeline.Row) Record {
	rec := Record{
		RecordID:   row.RecordID,
		Kind:       string(row.Kind),
		City:       row.City,
		CitySlug:   row.CitySlug,
		SourceCity: row.SourceCity,
		Latitude:   row.Coordinate.Lat(),
		Longitude:  row.Coordinate.Lon(),
		Geohash:    row.Geohash,
		DistanceKM: row.DistanceKM,
		Zone:       row.Zone,
	}

	if r := row.Rental; r != nil {
		rec.ID = r.ID
		rec.Type = r.Type
		rec.SquareMeters = r.SquareMeters
		rec.Rooms = r.Rooms
		rec.Price = r.Price
	}

	if o := row.Offer; o != nil {
		rec.ID = o.ID
		rec.Title = o.Title
		rec.CompanyName = o.CompanyName
		rec.Street = o.Street
		rec.ExperienceLevel = o.ExperienceLevel
		rec.WorkplaceType = o.WorkplaceType
		if len(o.EmploymentTypes) > 0 {
			rec.EmploymentType = o.EmploymentTypes[0].Type
		}
	}

	if s := row.Salary; s != nil {
		from, to, avg, amount, converted := s.From, s.To, s.Representative, s.Amount, s.Converted
		rec.SalaryFrom = &from
		rec.SalaryTo = &to
		rec.Currency = s.Currency
		rec.AvgSalary = &avg
		rec.Normalized = &amount
		rec.Converted = &converted
	}

	if b := row.Bucket; b != nil {
		idx := b.Index
		rec.BucketLabel = b.Label
		rec.BucketIndex = &idx
	}
	return rec
}

// LegendEntry is one bucket of one legend.
type LegendEntry struct {
	Scope string  `csv:"scope" json:"scope"`
	Index int     `csv:"index" json:"index"`
	Label string  `csv:"label" json:"label"`
	Low   float64 `csv:"low" json:"low"`
	High  float64 `csv:"high" json:"high"`
	Count int     `csv:"count" json:"count"`
}

// Legend flattens result legends, sorted by scope key then bucket index.
func Legend(res *pipeline.Result) []LegendEntry {
	keys := make([]string, 0, len(res.Legends))
	for k := range res.Legends {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []LegendEntry
	for _, k := range keys {
		for _, b := range res.Legends[k] {
			out = append(out, legendEntry(k, b))
		}
	}
	return out
}

func legendEntry(scope string, b bucket.Bucket) LegendEntry {
	return LegendEntry{Scope: scope, Index: b.Index, Label: b.Label, Low: b.Low, High: b.High, Count: b.Count}
}
