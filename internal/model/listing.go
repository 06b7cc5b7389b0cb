// Package model defines the rental and job-offer records that flow through
// the pipeline.
package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/citymap/internal/geo"
)

// ErrMissingData marks a record that lacks required geometry or salary data.
var ErrMissingData = eris.New("missing data")

// Kind distinguishes the two record sources.
type Kind string

// Record kinds.
const (
	KindRental Kind = "rental"
	KindJob    Kind = "job"
)

// Rental is one apartment rental listing.
type Rental struct {
	ID           string   `csv:"id" json:"id"`
	City         string   `csv:"city" json:"city"`
	Type         string   `csv:"type" json:"type,omitempty"`
	SquareMeters *float64 `csv:"squareMeters" json:"squareMeters,omitempty"`
	Rooms        *float64 `csv:"rooms" json:"rooms,omitempty"`
	Latitude     *float64 `csv:"latitude" json:"latitude,omitempty"`
	Longitude    *float64 `csv:"longitude" json:"longitude,omitempty"`
	Price        *float64 `csv:"price" json:"price,omitempty"`
}

// Coordinate returns the listing's WGS84 location.
func (r Rental) Coordinate() (geo.Coordinate, error) {
	if r.Latitude == nil || r.Longitude == nil {
		return geo.Coordinate{}, eris.Wrapf(ErrMissingData, "rental %s: no coordinates", r.ID)
	}
	c, err := geo.NewGeographic(*r.Latitude, *r.Longitude)
	if err != nil {
		return geo.Coordinate{}, eris.Wrapf(ErrMissingData, "rental %s: %v", r.ID, err)
	}
	return c, nil
}

// JobOffer is one job posting from the justjoin.it export.
type JobOffer struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	CompanyName     string           `json:"company_name"`
	City            string           `json:"city"`
	Street          string           `json:"street"`
	ExperienceLevel string           `json:"experience_level"`
	WorkplaceType   string           `json:"workplace_type"`
	Latitude        FlexFloat        `json:"latitude"`
	Longitude       FlexFloat        `json:"longitude"`
	EmploymentTypes []EmploymentType `json:"employment_types"`
}

// Coordinate returns the offer's WGS84 location.
func (o JobOffer) Coordinate() (geo.Coordinate, error) {
	if !o.Latitude.Valid || !o.Longitude.Valid {
		return geo.Coordinate{}, eris.Wrapf(ErrMissingData, "job %s: no coordinates", o.ID)
	}
	c, err := geo.NewGeographic(o.Latitude.Value, o.Longitude.Value)
	if err != nil {
		return geo.Coordinate{}, eris.Wrapf(ErrMissingData, "job %s: %v", o.ID, err)
	}
	return c, nil
}

// EmploymentType is one contract option of a job offer. Salary is nil when
// the offer does not disclose pay for this contract.
type EmploymentType struct {
	Type   string       `json:"type"`
	Salary *SalaryRange `json:"salary"`
}

// SalaryRange is a disclosed pay range in the offer's currency.
type SalaryRange struct {
	From     *float64 `json:"from"`
	To       *float64 `json:"to"`
	Currency string   `json:"currency"`
}

// FlexFloat decodes a JSON number, a numeric string, or null.
type FlexFloat struct {
	Value float64
	Valid bool
}

// Float returns a valid FlexFloat.
func Float(v float64) FlexFloat { return FlexFloat{Value: v, Valid: true} }

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = FlexFloat{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode numeric string")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = FlexFloat{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return eris.Wrapf(err, "model: parse %q", s)
		}
		*f = FlexFloat{Value: v, Valid: true}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "model: decode number")
	}
	*f = FlexFloat{Value: v, Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
