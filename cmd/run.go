package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/citymap/internal/city"
	"github.com/sells-group/citymap/internal/config"
	"github.com/sells-group/citymap/internal/export"
	"github.com/sells-group/citymap/internal/model"
	"github.com/sells-group/citymap/internal/pipeline"
	"github.com/sells-group/citymap/internal/source"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Assign records to cities, bucket salaries, and write outputs",
	Long: `Loads rental listings (.csv or .xlsx) and job offers (.json), keeps the
records that belong to a catalog city, normalizes offer salaries to PLN,
assigns equal-frequency salary buckets, and writes one file per format.

Examples:
  # Default great-circle membership, global buckets, CSV + GeoJSON
  citymap run --rentals data/apartments_rent_pl_2023_11.csv --offers data/justjoinit-2023-09-25.json

  # Projected buffer without scale correction, per-city buckets, every format
  citymap run --offers offers.json --mode projected_buffer --scale-correction=false --scope city --format all

  # Label-only assignment, fail on records without coordinates or salary
  citymap run --offers offers.json --rule label --strict

  # Read one month straight out of a downloaded archive
  citymap run --rentals archive.zip#apartments_rent_pl_2023_11.csv`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.String("rentals", "", "rental listings .csv or .xlsx: path, http(s)/ftp URL, or archive.zip#member")
	f.String("offers", "", "job offers .json: path, http(s)/ftp URL, or archive.zip#member")
	f.String("cities", "", "city catalog yaml (default: built-in catalog)")
	f.String("sheet", "", "xlsx worksheet holding rentals (default: first sheet)")
	f.String("mode", "", "membership algorithm: great_circle or projected_buffer")
	f.Float64("radius", 0, "inclusion radius in km (overrides config)")
	f.String("rule", "", "assignment rule: label, coordinate, label_and_coordinate, label_or_coordinate")
	f.String("scope", "", "bucketing scope: global or city")
	f.Int("buckets", 0, "number of salary buckets (overrides config)")
	f.Bool("strict", false, "fail when a record lacks coordinates or an offer lacks a salary")
	f.Int("concurrency", 0, "cities evaluated in parallel (overrides config)")
	f.Bool("scale-correction", true, "scale the projected buffer by the Mercator factor")
	f.Int("segments", 0, "projected buffer vertex count (overrides config)")
	f.String("output-dir", "", "output directory (overrides config)")
	f.String("basename", "", "output file base name (overrides config)")
	f.String("format", "", "comma-separated output formats: csv,json,geojson,shp,xlsx,gpkg or all")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applyRunOverrides(cmd, cfg)
	if err := cfg.Validate("run"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "run"))

	opts, err := cfg.Pipeline.Options()
	if err != nil {
		return err
	}
	formats, err := export.ParseFormats(cfg.Output.Formats)
	if err != nil {
		return eris.Wrap(err, "run: parse formats")
	}

	catalog, err := city.LoadCatalog(cfg.Input.Cities)
	if err != nil {
		return eris.Wrap(err, "run: load city catalog")
	}

	in, err := loadInput(ctx, cfg.Input)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, catalog, in, opts)
	if err != nil {
		return eris.Wrap(err, "run: pipeline")
	}

	paths, err := export.Write(ctx, cfg.Output.Dir, cfg.Output.Basename, res, formats)
	if err != nil {
		return eris.Wrap(err, "run: write outputs")
	}

	log.Info("run complete",
		zap.Int("rows", res.Stats.Rows),
		zap.Int("files", len(paths)),
		zap.String("output_dir", cfg.Output.Dir),
	)

	printRunSummary(cmd.OutOrStdout(), catalog, res, paths)
	return nil
}

// loadInput resolves both input locations to local files and reads them.
// Remote and zipped inputs land in the configured download dir, or in a
// temporary dir removed once loading is done. An .xlsx rentals file honors
// the configured sheet name.
func loadInput(ctx context.Context, in config.InputConfig) (pipeline.Input, error) {
	dir := in.DownloadDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "citymap-")
		if err != nil {
			return pipeline.Input{}, eris.Wrap(err, "run: create download dir")
		}
		defer os.RemoveAll(tmp) //nolint:errcheck
		dir = tmp
	}
	resolver := source.NewResolver(dir, source.RemoteOptions{
		Timeout:    in.Timeout,
		MaxRetries: in.MaxRetries,
	})

	rentalsPath, err := resolver.Resolve(ctx, in.Rentals)
	if err != nil {
		return pipeline.Input{}, eris.Wrap(err, "run: resolve rentals")
	}
	offersPath, err := resolver.Resolve(ctx, in.Offers)
	if err != nil {
		return pipeline.Input{}, eris.Wrap(err, "run: resolve offers")
	}

	var rentals []model.Rental
	if in.Sheet != "" && strings.EqualFold(filepath.Ext(rentalsPath), ".xlsx") {
		rentals, err = source.ReadRentalsXLSX(ctx, rentalsPath, source.XLSXOptions{SheetName: in.Sheet})
	} else {
		rentals, err = source.LoadRentals(ctx, rentalsPath)
	}
	if err != nil {
		return pipeline.Input{}, eris.Wrap(err, "run: load rentals")
	}

	offers, err := source.LoadJobOffers(ctx, offersPath)
	if err != nil {
		return pipeline.Input{}, eris.Wrap(err, "run: load offers")
	}
	return pipeline.Input{Rentals: rentals, Offers: offers}, nil
}

// applyRunOverrides applies CLI flag overrides to the loaded config.
func applyRunOverrides(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()

	if v, _ := f.GetString("rentals"); v != "" {
		c.Input.Rentals = v
	}
	if v, _ := f.GetString("offers"); v != "" {
		c.Input.Offers = v
	}
	if v, _ := f.GetString("cities"); v != "" {
		c.Input.Cities = v
	}
	if v, _ := f.GetString("sheet"); v != "" {
		c.Input.Sheet = v
	}
	if v, _ := f.GetString("mode"); v != "" {
		c.Pipeline.Mode = v
	}
	if v, _ := f.GetFloat64("radius"); v > 0 {
		c.Pipeline.RadiusKM = v
	}
	if v, _ := f.GetString("rule"); v != "" {
		c.Pipeline.Rule = v
	}
	if v, _ := f.GetString("scope"); v != "" {
		c.Pipeline.Scope = v
	}
	if v, _ := f.GetInt("buckets"); v > 0 {
		c.Pipeline.Buckets = v
	}
	if f.Changed("strict") {
		c.Pipeline.Strict, _ = f.GetBool("strict")
	}
	if v, _ := f.GetInt("concurrency"); v > 0 {
		c.Pipeline.Concurrency = v
	}
	if f.Changed("scale-correction") {
		c.Pipeline.ScaleCorrection, _ = f.GetBool("scale-correction")
	}
	if v, _ := f.GetInt("segments"); v > 0 {
		c.Pipeline.Segments = v
	}
	if v, _ := f.GetString("output-dir"); v != "" {
		c.Output.Dir = v
	}
	if v, _ := f.GetString("basename"); v != "" {
		c.Output.Basename = v
	}
	if v, _ := f.GetString("format"); v != "" {
		c.Output.Formats = splitAndTrim(v)
	}
}

func printRunSummary(w io.Writer, catalog *city.Catalog, res *pipeline.Result, paths []string) {
	s := res.Stats
	fmt.Fprintf(w, "\n--- Summary ---\n")
	fmt.Fprintf(w, "Mode:             %s (rule %s, scope %s)\n", res.Options.Mode, res.Options.Rule, res.Options.Scope)
	fmt.Fprintf(w, "Input:            %d rentals, %d offers\n", s.Rentals, s.Offers)
	fmt.Fprintf(w, "Rows kept:        %d\n", s.Rows)
	fmt.Fprintf(w, "No coordinates:   %d\n", s.MissingGeometry)
	fmt.Fprintf(w, "Unknown city:     %d\n", s.UnknownCity)
	fmt.Fprintf(w, "Outside radius:   %d\n", s.OutsideRadius)
	fmt.Fprintf(w, "Missing salary:   %d\n", s.MissingSalary)
	fmt.Fprintf(w, "Unconverted:      %d\n", s.Unconverted)

	fmt.Fprintf(w, "\n%-16s %8s\n", "City", "Rows")
	fmt.Fprintln(w, strings.Repeat("-", 25))
	for _, c := range catalog.Cities() {
		fmt.Fprintf(w, "%-16s %8d\n", c.Name, s.PerCity[c.Name])
	}

	if len(res.Legends) > 0 {
		keys := make([]string, 0, len(res.Legends))
		for k := range res.Legends {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "\nSalary buckets (%s):\n", k)
			for _, b := range res.Legends[k] {
				fmt.Fprintf(w, "  %d  %-28s %6d\n", b.Index, b.Label, b.Count)
			}
		}
	}

	if len(paths) > 0 {
		fmt.Fprintf(w, "\nWrote:\n")
		for _, p := range paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
