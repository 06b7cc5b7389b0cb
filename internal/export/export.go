package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/citymap/internal/pipeline"
)

// Format names an output file type.
type Format string

// Supported formats.
const (
	FormatCSV       Format = "csv"
	FormatJSON      Format = "json"
	FormatGeoJSON   Format = "geojson"
	FormatShapefile Format = "shp"
	FormatXLSX      Format = "xlsx"
	FormatGPKG      Format = "gpkg"
)

// AllFormats lists every supported format in write order.
var AllFormats = []Format{FormatCSV, FormatJSON, FormatGeoJSON, FormatShapefile, FormatXLSX, FormatGPKG}

// ParseFormats parses format names, accepting comma-separated entries.
// Duplicates are dropped; "all" expands to AllFormats.
func ParseFormats(names []string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	add := func(f Format) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}

	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			switch Format(part) {
			case "":
				continue
			case "all":
				for _, f := range AllFormats {
					add(f)
				}
			case "shapefile":
				add(FormatShapefile)
			case "geopackage":
				add(FormatGPKG)
			case FormatCSV, FormatJSON, FormatGeoJSON, FormatShapefile, FormatXLSX, FormatGPKG:
				add(Format(part))
			default:
				return nil, eris.Errorf("export: unknown format %q", part)
			}
		}
	}
	if len(out) == 0 {
		return nil, eris.New("export: no output formats")
	}
	return out, nil
}

// Write renders res into dir as <base>.<ext> per format, plus
// <base>_legend.csv whenever the result has legends. It returns the paths
// written. Files are staged in a temporary directory under dir and moved into
// place only after every format succeeds, so a failed run leaves dir as it was.
func Write(ctx context.Context, dir, base string, res *pipeline.Result, formats []Format) ([]string, error) {
	if base == "" {
		base = "citymap"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create %s", dir)
	}
	stage, err := os.MkdirTemp(dir, "."+base+"-")
	if err != nil {
		return nil, eris.Wrapf(err, "export: create staging dir in %s", dir)
	}
	defer os.RemoveAll(stage) //nolint:errcheck

	records := Records(res)
	legend := Legend(res)

	var names []string
	for _, f := range formats {
		name := base + "." + string(f)
		path := filepath.Join(stage, name)
		var err error
		switch f {
		case FormatCSV:
			err = writeFile(path, func(file *os.File) error { return WriteCSV(file, records) })
		case FormatJSON:
			err = writeFile(path, func(file *os.File) error { return WriteJSON(file, records) })
		case FormatGeoJSON:
			err = writeFile(path, func(file *os.File) error { return WriteGeoJSON(file, records) })
		case FormatShapefile:
			err = WriteShapefile(path, records)
		case FormatXLSX:
			err = WriteXLSX(path, records, legend)
		case FormatGPKG:
			err = WriteGeoPackage(ctx, path, records, legend)
		default:
			err = eris.Errorf("export: unknown format %q", f)
		}
		if err != nil {
			return nil, eris.Wrapf(err, "export: write %s", f)
		}
		names = append(names, name)
	}

	if len(legend) > 0 {
		name := base + "_legend.csv"
		if err := writeFile(filepath.Join(stage, name), func(file *os.File) error { return WriteLegendCSV(file, legend) }); err != nil {
			return nil, eris.Wrap(err, "export: write legend")
		}
		names = append(names, name)
	}

	// Shapefile sidecars (.shx, .dbf) move along with the named outputs.
	staged, err := os.ReadDir(stage)
	if err != nil {
		return nil, eris.Wrap(err, "export: list staged files")
	}
	for _, e := range staged {
		if err := os.Rename(filepath.Join(stage, e.Name()), filepath.Join(dir, e.Name())); err != nil {
			return nil, eris.Wrapf(err, "export: move %s into %s", e.Name(), dir)
		}
	}

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}

	zap.L().Info("export: wrote outputs",
		zap.String("dir", dir),
		zap.Int("records", len(records)),
		zap.Int("legend_entries", len(legend)),
		zap.Strings("paths", paths),
	)
	return paths, nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
