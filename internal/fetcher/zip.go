package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP unpacks every file in the archive under destDir and returns the
// extracted paths. Boundary archives nest their shapefiles in subdirectories,
// which are preserved.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	var paths []string
	for _, entry := range r.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		path, err := writeEntry(entry, destDir)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ExtractZIPSingle unpacks an archive that must contain exactly one file,
// the shape FHRS open-data downloads come in, and returns its path.
func ExtractZIPSingle(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrapf(err, "zip: open %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	var files []*zip.File
	for _, entry := range r.File {
		if !entry.FileInfo().IsDir() {
			files = append(files, entry)
		}
	}
	if len(files) != 1 {
		return "", eris.Errorf("zip: %s holds %d files, want exactly 1", zipPath, len(files))
	}
	return writeEntry(files[0], destDir)
}

func writeEntry(entry *zip.File, destDir string) (string, error) {
	// Reject entries that would escape destDir.
	destPath := filepath.Join(destDir, entry.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: entry %q escapes destination", entry.Name)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create directory")
	}

	rc, err := entry.Open()
	if err != nil {
		return "", eris.Wrapf(err, "zip: open entry %s", entry.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrapf(err, "zip: create %s", destPath)
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrapf(err, "zip: write %s", destPath)
	}
	return destPath, nil
}
