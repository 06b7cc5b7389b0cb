package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mmcloughlin/geohash"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/citymap/internal/city"
	"github.com/sells-group/citymap/internal/geo"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Compare membership algorithms for one coordinate",
	Long: `Evaluates a single WGS84 coordinate against every catalog city (or one
city with --city) and prints the haversine distance, the distance zone, and
the membership decision of the great-circle test and the projected buffer
with and without scale correction. Rows where the algorithms disagree are
marked with "*".

Examples:
  citymap probe --lat 50.06 --lon 19.94
  citymap probe --lat 52.30 --lon 21.00 --city warszawa --radius 8`,
	RunE: runProbe,
}

func init() {
	f := probeCmd.Flags()
	f.Float64("lat", 0, "latitude in degrees (required)")
	f.Float64("lon", 0, "longitude in degrees (required)")
	f.String("city", "", "probe a single city by name or alias")
	f.String("cities", "", "city catalog yaml (default: built-in catalog)")
	f.Float64("radius", 0, "inclusion radius in km (overrides config)")
	f.Int("segments", 0, "projected buffer vertex count (overrides config)")
	_ = probeCmd.MarkFlagRequired("lat")
	_ = probeCmd.MarkFlagRequired("lon")

	rootCmd.AddCommand(probeCmd)
}

// probeResult is the outcome of every membership algorithm for one city.
type probeResult struct {
	City         string
	DistanceKM   float64
	RadiusKM     float64
	Zone         string
	GreatCircle  bool
	Projected    bool // scale-corrected buffer
	ProjectedRaw bool
}

// Disagree reports whether any two algorithms decided differently.
func (p probeResult) Disagree() bool {
	return p.GreatCircle != p.Projected || p.GreatCircle != p.ProjectedRaw
}

func runProbe(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	if v, _ := f.GetString("cities"); v != "" {
		cfg.Input.Cities = v
	}
	if v, _ := f.GetFloat64("radius"); v > 0 {
		cfg.Pipeline.RadiusKM = v
	}
	if v, _ := f.GetInt("segments"); v > 0 {
		cfg.Pipeline.Segments = v
	}
	if err := cfg.Validate("probe"); err != nil {
		return err
	}

	lat, _ := f.GetFloat64("lat")
	lon, _ := f.GetFloat64("lon")
	point, err := geo.NewGeographic(lat, lon)
	if err != nil {
		return eris.Wrap(err, "probe: coordinate")
	}

	catalog, err := city.LoadCatalog(cfg.Input.Cities)
	if err != nil {
		return eris.Wrap(err, "probe: load city catalog")
	}

	cities := catalog.Cities()
	if label, _ := f.GetString("city"); label != "" {
		ct, err := catalog.Lookup(label)
		if err != nil {
			return eris.Wrap(err, "probe")
		}
		cities = []city.City{ct}
	}

	results := make([]probeResult, 0, len(cities))
	for _, ct := range cities {
		r, err := probeCity(point, ct, cfg.Pipeline.RadiusKM, cfg.Pipeline.Segments)
		if err != nil {
			return err
		}
		results = append(results, r)
	}

	zap.L().Debug("probe complete",
		zap.String("command", "probe"),
		zap.Stringer("point", point),
		zap.Int("cities", len(results)),
	)

	hash := geohash.EncodeWithPrecision(lat, lon, uint(cfg.Pipeline.GeohashPrecision))
	return writeProbeTable(cmd.OutOrStdout(), point, hash, results)
}

// probeCity runs all membership variants for one city. A non-positive
// radiusKM uses the city's own radius.
func probeCity(point geo.Coordinate, ct city.City, radiusKM float64, segments int) (probeResult, error) {
	if radiusKM <= 0 {
		radiusKM = ct.RadiusKM
	}
	dist, err := geo.HaversineKM(point, ct.Center)
	if err != nil {
		return probeResult{}, eris.Wrapf(err, "probe: distance to %s", ct.Name)
	}

	r := probeResult{City: ct.Name, DistanceKM: dist, RadiusKM: radiusKM}
	variants := []struct {
		mode geo.Mode
		opts geo.MembershipOptions
		dst  *bool
	}{
		{geo.ModeGreatCircle, geo.MembershipOptions{}, &r.GreatCircle},
		{geo.ModeProjectedBuffer, geo.MembershipOptions{ScaleCorrection: true, Segments: segments}, &r.Projected},
		{geo.ModeProjectedBuffer, geo.MembershipOptions{Segments: segments}, &r.ProjectedRaw},
	}
	for _, v := range variants {
		in, err := city.BelongsTo(point, ct, radiusKM, v.mode, v.opts)
		if err != nil {
			return probeResult{}, eris.Wrapf(err, "probe: %s membership for %s", v.mode, ct.Name)
		}
		*v.dst = in
	}
	r.Zone = geo.Classify(r.GreatCircle, dist, radiusKM)
	return r, nil
}

func writeProbeTable(w io.Writer, point geo.Coordinate, hash string, results []probeResult) error {
	if _, err := fmt.Fprintf(w, "Point %s (geohash %s)\n\n", point, hash); err != nil {
		return eris.Wrap(err, "probe: write header")
	}
	header := fmt.Sprintf("%-16s %10s %8s %-8s %8s %10s %10s %s\n",
		"City", "Dist (km)", "Radius", "Zone", "Great", "Buffer", "Raw", "")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "probe: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 78)); err != nil {
		return eris.Wrap(err, "probe: write table separator")
	}

	for _, r := range results {
		mark := ""
		if r.Disagree() {
			mark = "*"
		}
		line := fmt.Sprintf("%-16s %10.3f %8.1f %-8s %8v %10v %10v %s\n",
			r.City, r.DistanceKM, r.RadiusKM, r.Zone, r.GreatCircle, r.Projected, r.ProjectedRaw, mark)
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "probe: write table row")
		}
	}
	return nil
}
