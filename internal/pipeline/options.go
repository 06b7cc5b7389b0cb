package pipeline

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/citymap/internal/bucket"
	"github.com/sells-group/citymap/internal/geo"
)

// Rule decides how a record's city label and coordinate combine into a city
// assignment.
type Rule string

// Match rules.
const (
	// RuleLabel trusts the city label alone.
	RuleLabel Rule = "label"
	// RuleCoordinate assigns the nearest city whose circle holds the point.
	RuleCoordinate Rule = "coordinate"
	// RuleLabelAndCoordinate requires the labeled city's circle to hold the
	// point.
	RuleLabelAndCoordinate Rule = "label_and_coordinate"
	// RuleLabelOrCoordinate takes the label when it resolves, else the
	// coordinate.
	RuleLabelOrCoordinate Rule = "label_or_coordinate"
)

// ParseRule parses a match rule name. Hyphens are accepted for underscores;
// empty selects RuleLabelAndCoordinate.
func ParseRule(s string) (Rule, error) {
	switch r := Rule(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")); r {
	case "":
		return RuleLabelAndCoordinate, nil
	case RuleLabel, RuleCoordinate, RuleLabelAndCoordinate, RuleLabelOrCoordinate:
		return r, nil
	default:
		return "", eris.Errorf("pipeline: unknown match rule %q", s)
	}
}

// Scope selects the value set salary buckets are computed over.
type Scope string

// Bucketing scopes.
const (
	ScopeGlobal Scope = "global"
	ScopeCity   Scope = "city"
)

// LegendGlobal keys the single legend produced under ScopeGlobal.
const LegendGlobal = "all"

// ParseScope parses a bucketing scope; empty selects ScopeGlobal.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case "":
		return ScopeGlobal, nil
	case ScopeGlobal, ScopeCity:
		return sc, nil
	default:
		return "", eris.Errorf("pipeline: unknown bucketing scope %q", s)
	}
}

// DefaultGeohashPrecision is the geohash length attached to every row.
const DefaultGeohashPrecision = 7

// Options configures one pipeline run.
type Options struct {
	Mode             geo.Mode
	RadiusKM         float64 // <= 0 uses each city's own radius
	Rule             Rule
	Scope            Scope
	Buckets          int
	Strict           bool // missing geometry or salary fails the run
	Concurrency      int  // per-city fan-out limit
	ScaleCorrection  bool
	Segments         int
	GeohashPrecision uint
}

// DefaultOptions returns the settings that reproduce the reference salary
// maps, with scale correction on.
func DefaultOptions() Options {
	return Options{
		Mode:             geo.ModeGreatCircle,
		Rule:             RuleLabelAndCoordinate,
		Scope:            ScopeGlobal,
		Buckets:          bucket.DefaultCount,
		Concurrency:      1,
		ScaleCorrection:  true,
		Segments:         geo.DefaultBufferSegments,
		GeohashPrecision: DefaultGeohashPrecision,
	}
}

// normalize fills zero values with defaults and validates the rest.
func (o Options) normalize() (Options, error) {
	d := DefaultOptions()
	var err error
	if o.Mode, err = geo.ParseMode(string(o.Mode)); err != nil {
		return o, eris.Wrap(err, "pipeline: options")
	}
	if o.Rule, err = ParseRule(string(o.Rule)); err != nil {
		return o, err
	}
	if o.Scope, err = ParseScope(string(o.Scope)); err != nil {
		return o, err
	}
	if o.Buckets == 0 {
		o.Buckets = d.Buckets
	}
	if o.Buckets < 1 {
		return o, eris.Errorf("pipeline: bucket count must be positive, got %d", o.Buckets)
	}
	if o.Concurrency < 1 {
		o.Concurrency = d.Concurrency
	}
	if o.Segments == 0 {
		o.Segments = d.Segments
	}
	if o.GeohashPrecision == 0 || o.GeohashPrecision > 12 {
		o.GeohashPrecision = d.GeohashPrecision
	}
	return o, nil
}

func (o Options) membership() geo.MembershipOptions {
	return geo.MembershipOptions{ScaleCorrection: o.ScaleCorrection, Segments: o.Segments}
}
