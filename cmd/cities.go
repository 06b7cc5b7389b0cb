package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/citymap/internal/city"
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "List the city catalog",
	Long:  "Prints every catalog city with its centroid, inclusion radius, and accepted labels.",
	RunE:  runCities,
}

func init() {
	f := citiesCmd.Flags()
	f.String("cities", "", "city catalog yaml (default: built-in catalog)")
	f.String("format", "table", "output format: table or csv")

	rootCmd.AddCommand(citiesCmd)
}

func runCities(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	if v, _ := f.GetString("cities"); v != "" {
		cfg.Input.Cities = v
	}
	if err := cfg.Validate("cities"); err != nil {
		return err
	}

	catalog, err := city.LoadCatalog(cfg.Input.Cities)
	if err != nil {
		return eris.Wrap(err, "cities: load catalog")
	}

	format, _ := f.GetString("format")
	switch format {
	case "csv":
		return writeCitiesCSV(cmd.OutOrStdout(), catalog.Cities())
	case "table", "":
		return writeCitiesTable(cmd.OutOrStdout(), catalog.Cities())
	default:
		return eris.Errorf("cities: unknown format %q", format)
	}
}

func writeCitiesTable(w io.Writer, cities []city.City) error {
	header := fmt.Sprintf("%-16s %-12s %10s %10s %8s  %s\n",
		"City", "Slug", "Lat", "Lon", "Radius", "Aliases")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "cities: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 80)); err != nil {
		return eris.Wrap(err, "cities: write table separator")
	}
	for _, c := range cities {
		line := fmt.Sprintf("%-16s %-12s %10.4f %10.4f %8.1f  %s\n",
			c.Name, c.Slug, c.Center.Lat(), c.Center.Lon(), c.RadiusKM, strings.Join(c.Aliases, ", "))
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "cities: write table row")
		}
	}
	return nil
}

func writeCitiesCSV(w io.Writer, cities []city.City) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "slug", "lat", "lon", "radius_km", "aliases"}); err != nil {
		return eris.Wrap(err, "cities: write csv header")
	}
	for _, c := range cities {
		row := []string{
			c.Name,
			c.Slug,
			strconv.FormatFloat(c.Center.Lat(), 'f', -1, 64),
			strconv.FormatFloat(c.Center.Lon(), 'f', -1, 64),
			strconv.FormatFloat(c.RadiusKM, 'f', -1, 64),
			strings.Join(c.Aliases, "|"),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "cities: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "cities: flush csv")
}
