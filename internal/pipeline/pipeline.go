// Package pipeline assigns rentals and job offers to cities, normalizes offer
// salaries, and buckets them for map legends.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/citymap/internal/bucket"
	"github.com/sells-group/citymap/internal/city"
	"github.com/sells-group/citymap/internal/geo"
	"github.com/sells-group/citymap/internal/model"
	"github.com/sells-group/citymap/internal/salary"
)

// Input is the in-memory batch for one run.
type Input struct {
	Rentals []model.Rental
	Offers  []model.JobOffer
}

// Row is one record assigned to a city, augmented for map renderers.
type Row struct {
	Kind       model.Kind
	RecordID   string
	City       string // canonical name
	CitySlug   string
	SourceCity string // label as found in the input
	Coordinate geo.Coordinate
	Geohash    string
	DistanceKM float64 // great-circle distance to the city centroid
	Zone       string
	Rental     *model.Rental
	Offer      *model.JobOffer
	Salary     *salary.Normalized // nil for rentals
	Bucket     *bucket.Bucket
}

// Exclusion records why an input record produced no row.
type Exclusion struct {
	Kind   model.Kind
	Index  int // position in its input slice
	ID     string
	Reason string
}

// Exclusion reasons.
const (
	ReasonNoCoordinates = "no coordinates"
	ReasonUnknownCity   = "unknown city label"
	ReasonOutsideRadius = "outside city radius"
)

// Stats summarizes a run.
type Stats struct {
	Rentals         int
	Offers          int
	Rows            int
	MissingGeometry int
	UnknownCity     int
	OutsideRadius   int
	MissingSalary   int
	Unconverted     int
	PerCity         map[string]int
}

// Result is the output of Run. Legends are keyed by LegendGlobal under
// ScopeGlobal and by canonical city name under ScopeCity.
type Result struct {
	Rows       []Row
	Legends    map[string][]bucket.Bucket
	Stats      Stats
	Exclusions []Exclusion
	Options    Options
}

// recordNamespace seeds deterministic record IDs.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/sells-group/citymap/records"))

func recordID(kind model.Kind, index int, id string) string {
	return uuid.NewSHA1(recordNamespace, []byte(fmt.Sprintf("%s/%d/%s", kind, index, id))).String()
}

// candidate is a record with a usable coordinate, awaiting city assignment.
type candidate struct {
	kind  model.Kind
	index int
	id    string
	label string
	coord geo.Coordinate
}

// Run executes one batch pass: geometry check, per-city membership, city
// assignment by rule, salary normalization, then bucketing once every city is
// done. Rows are ordered by catalog city, then rentals before jobs, then
// input order. Inputs are not modified.
func Run(ctx context.Context, catalog *city.Catalog, in Input, opts Options) (*Result, error) {
	if catalog == nil {
		catalog = city.Default()
	}
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("mode", string(opts.Mode)),
		zap.String("rule", string(opts.Rule)),
		zap.String("scope", string(opts.Scope)),
	)
	log.Info("pipeline: starting",
		zap.Int("rentals", len(in.Rentals)),
		zap.Int("offers", len(in.Offers)),
		zap.Int("cities", catalog.Len()),
		zap.Float64("radius_km", opts.RadiusKM),
		zap.Bool("scale_correction", opts.ScaleCorrection),
	)

	res := &Result{
		Legends: make(map[string][]bucket.Bucket),
		Options: opts,
		Stats: Stats{
			Rentals: len(in.Rentals),
			Offers:  len(in.Offers),
			PerCity: make(map[string]int, catalog.Len()),
		},
	}

	cands, err := collect(in, opts.Strict, res)
	if err != nil {
		return nil, err
	}

	m, err := evaluate(ctx, catalog, cands, opts)
	if err != nil {
		return nil, err
	}

	rows, err := assign(catalog, in, cands, m, opts, res)
	if err != nil {
		return nil, err
	}

	// Barrier: every city's rows exist before any bucket is computed.
	if err := bucketize(catalog, rows, opts, res); err != nil {
		return nil, err
	}

	res.Rows = rows
	res.Stats.Rows = len(rows)
	log.Info("pipeline: complete",
		zap.Int("rows", res.Stats.Rows),
		zap.Int("missing_geometry", res.Stats.MissingGeometry),
		zap.Int("unknown_city", res.Stats.UnknownCity),
		zap.Int("outside_radius", res.Stats.OutsideRadius),
		zap.Int("missing_salary", res.Stats.MissingSalary),
		zap.Int("unconverted", res.Stats.Unconverted),
		zap.Int("legends", len(res.Legends)),
	)
	return res, nil
}

// collect drops records without a usable coordinate.
func collect(in Input, strict bool, res *Result) ([]candidate, error) {
	cands := make([]candidate, 0, len(in.Rentals)+len(in.Offers))

	add := func(kind model.Kind, index int, id, label string, coord geo.Coordinate, err error) error {
		if err != nil {
			if strict {
				return eris.Wrapf(err, "pipeline: strict mode")
			}
			res.Stats.MissingGeometry++
			res.Exclusions = append(res.Exclusions, Exclusion{Kind: kind, Index: index, ID: id, Reason: ReasonNoCoordinates})
			return nil
		}
		cands = append(cands, candidate{kind: kind, index: index, id: id, label: label, coord: coord})
		return nil
	}

	for i, r := range in.Rentals {
		c, err := r.Coordinate()
		if err := add(model.KindRental, i, r.ID, r.City, c, err); err != nil {
			return nil, err
		}
	}
	for i, o := range in.Offers {
		c, err := o.Coordinate()
		if err := add(model.KindJob, i, o.ID, o.City, c, err); err != nil {
			return nil, err
		}
	}
	return cands, nil
}

// assign resolves each candidate to a city and builds its row.
func assign(catalog *city.Catalog, in Input, cands []candidate, m *membership, opts Options, res *Result) ([]Row, error) {
	byCity := make([][]Row, catalog.Len())

	for j, c := range cands {
		labelIdx, labeled := catalog.IndexOf(c.label)
		ci, ok := m.resolve(opts.Rule, labelIdx, labeled, j)
		if !ok {
			reason := ReasonOutsideRadius
			if !labeled && opts.Rule != RuleCoordinate {
				reason = ReasonUnknownCity
				res.Stats.UnknownCity++
			} else {
				res.Stats.OutsideRadius++
			}
			res.Exclusions = append(res.Exclusions, Exclusion{Kind: c.kind, Index: c.index, ID: c.id, Reason: reason})
			continue
		}

		ct := catalog.At(ci)
		radius := opts.RadiusKM
		if radius <= 0 {
			radius = ct.RadiusKM
		}
		row := Row{
			Kind:       c.kind,
			RecordID:   recordID(c.kind, c.index, c.id),
			City:       ct.Name,
			CitySlug:   ct.Slug,
			SourceCity: c.label,
			Coordinate: c.coord,
			Geohash:    geohash.EncodeWithPrecision(c.coord.Lat(), c.coord.Lon(), opts.GeohashPrecision),
			DistanceKM: m.distKM[ci][j],
			Zone:       geo.Classify(m.inside[ci][j], m.distKM[ci][j], radius),
		}

		switch c.kind {
		case model.KindRental:
			rental := in.Rentals[c.index]
			row.Rental = &rental
		case model.KindJob:
			offer := in.Offers[c.index]
			n, ok := salary.Normalize(offer)
			if !ok {
				if opts.Strict {
					return nil, eris.Wrapf(model.ErrMissingData, "pipeline: strict mode: job %s: %s", offer.ID, salary.Describe(offer))
				}
				res.Stats.MissingSalary++
				res.Exclusions = append(res.Exclusions, Exclusion{
					Kind: c.kind, Index: c.index, ID: c.id,
					Reason: "no salary: " + salary.Describe(offer),
				})
				continue
			}
			row.Offer = &offer
			row.Salary = &n
			if !n.Converted {
				res.Stats.Unconverted++
			}
		}

		byCity[ci] = append(byCity[ci], row)
	}

	var rows []Row
	for i, cityRows := range byCity {
		res.Stats.PerCity[catalog.At(i).Name] = len(cityRows)
		rows = append(rows, cityRows...)
	}
	return rows, nil
}

// bucketize computes salary buckets per scope and attaches them to rows.
// Scopes without any salaried row get no legend.
func bucketize(catalog *city.Catalog, rows []Row, opts Options, res *Result) error {
	keys := []string{LegendGlobal}
	if opts.Scope == ScopeCity {
		keys = keys[:0]
		for _, ct := range catalog.Cities() {
			keys = append(keys, ct.Name)
		}
	}

	groups := make(map[string][]int, len(keys))
	for i, r := range rows {
		if r.Salary == nil {
			continue
		}
		key := LegendGlobal
		if opts.Scope == ScopeCity {
			key = r.City
		}
		groups[key] = append(groups[key], i)
	}

	for _, key := range keys {
		idx := groups[key]
		if len(idx) == 0 {
			continue
		}
		values := make([]float64, len(idx))
		for n, i := range idx {
			values[n] = rows[i].Salary.Amount
		}

		set, assigned, err := bucket.Bucketize(values, opts.Buckets, salary.Canonical)
		if err != nil {
			return eris.Wrapf(err, "pipeline: bucketize %s (%d salaries)", key, len(values))
		}
		res.Legends[key] = set.Buckets()
		for n, i := range idx {
			b := assigned[n]
			rows[i].Bucket = &b
		}
		zap.L().Debug("pipeline: legend",
			zap.String("scope_key", key),
			zap.Strings("labels", set.Labels()),
		)
	}
	return nil
}
