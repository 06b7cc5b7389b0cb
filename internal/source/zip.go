package source

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// inputExts are the archive members extractInput will pick on its own.
var inputExts = map[string]bool{".csv": true, ".xlsx": true, ".json": true}

// extractInput extracts one input file from a zip archive into destDir.
// With member set it extracts that entry; otherwise the archive must hold
// exactly one .csv, .xlsx, or .json file.
func extractInput(zipPath, member, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	if member != "" {
		for _, f := range r.File {
			if f.Name == member || path.Base(f.Name) == member {
				return extractZIPEntry(f, destDir)
			}
		}
		return "", eris.Errorf("zip: file %q not found in %s", member, zipPath)
	}

	var candidates []*zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if inputExts[strings.ToLower(filepath.Ext(f.Name))] {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) != 1 {
		return "", eris.Errorf("zip: %s holds %d input files, name one with %s#<file>", zipPath, len(candidates), zipPath)
	}
	return extractZIPEntry(candidates[0], destDir)
}

// extractZIPEntry extracts a single file entry to destDir.
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	// Sanitize against zip slip
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q (zip slip attempt)", f.Name)
	}
	if f.FileInfo().IsDir() {
		return "", eris.Errorf("zip: %q is a directory", f.Name)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}
	return destPath, nil
}
