package districts

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/wroge/wgs84"
	"go.uber.org/zap"

	"github.com/ldnfood/linkage-cli/internal/fetcher"
)

// Shapefile attribute fields carrying the district identity. The London
// borough boundary file publishes GSS_CODE and NAME; other boundary sets can
// override the name field via configuration.
const (
	fieldCode        = "GSS_CODE"
	defaultNameField = "NAME"
)

// Download fetches the boundary archive to destDir and returns the local
// path. An ETag sidecar next to the archive skips the transfer when the
// server still publishes the same revision.
func Download(ctx context.Context, f fetcher.Fetcher, url, destDir string) (string, error) {
	dest := filepath.Join(destDir, "districts.zip")
	etagPath := dest + ".etag"

	var etag string
	if _, err := os.Stat(dest); err == nil {
		if data, err := os.ReadFile(etagPath); err == nil {
			etag = strings.TrimSpace(string(data))
		}
	}

	zap.L().Info("downloading district boundaries", zap.String("url", url))
	body, newTag, changed, err := f.DownloadIfChanged(ctx, url, etag)
	if err != nil {
		return "", eris.Wrap(err, "districts: download archive")
	}
	if !changed {
		zap.L().Info("boundary archive unchanged", zap.String("path", dest))
		return dest, nil
	}
	defer body.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrapf(err, "districts: create %s", dest)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close() //nolint:errcheck
		return "", eris.Wrapf(err, "districts: write %s", dest)
	}
	if err := out.Close(); err != nil {
		return "", eris.Wrapf(err, "districts: close %s", dest)
	}

	if newTag != "" {
		if err := os.WriteFile(etagPath, []byte(newTag), 0o644); err != nil {
			zap.L().Warn("write etag sidecar failed", zap.Error(err))
		}
	} else {
		_ = os.Remove(etagPath)
	}
	return dest, nil
}

// LoadArchive extracts a zipped shapefile and loads the districts from it.
// nameField selects the attribute holding the district name; empty means NAME.
func LoadArchive(zipPath, nameField string) (*Set, error) {
	dir, err := os.MkdirTemp("", "districts-*")
	if err != nil {
		return nil, eris.Wrap(err, "districts: temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	paths, err := fetcher.ExtractZIP(zipPath, dir)
	if err != nil {
		return nil, eris.Wrapf(err, "districts: extract %s", zipPath)
	}

	// Published boundary archives nest their shapefiles under
	// subdirectories, so search the extracted paths rather than the
	// top-level directory.
	shpPath, err := findFileByExt(paths, ".shp")
	if err != nil {
		return nil, eris.Wrapf(err, "districts: locate shapefile in %s", zipPath)
	}
	return LoadShapefile(shpPath, nameField)
}

// LoadShapefile reads district polygons from a shapefile. Records without a
// name or a usable polygon are skipped.
func LoadShapefile(path, nameField string) (*Set, error) {
	if nameField == "" {
		nameField = defaultNameField
	}
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "districts: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	codeIdx := fieldIndex(reader, fieldCode)
	nameIdx := fieldIndex(reader, nameField)
	if nameIdx < 0 {
		return nil, eris.Errorf("districts: shapefile %s has no %s field", path, nameField)
	}

	proj := detectProjection(path, reader.BBox())

	var loaded []District
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if name == "" {
			skipped++
			continue
		}
		var code string
		if codeIdx >= 0 {
			code = strings.TrimSpace(strings.TrimRight(reader.Attribute(codeIdx), "\x00"))
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		boundary := polygonToMultiPolygon(poly, proj)
		if boundary == nil {
			skipped++
			continue
		}

		loaded = append(loaded, District{Code: code, Name: name, Boundary: boundary})
	}

	if skipped > 0 {
		zap.L().Debug("districts: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped))
	}
	if len(loaded) == 0 {
		return nil, eris.Errorf("districts: no usable polygons in %s", path)
	}

	zap.L().Info("district boundaries loaded",
		zap.String("path", path),
		zap.Int("districts", len(loaded)))
	return NewSet(loaded), nil
}

// projection maps a shapefile vertex to WGS84 longitude/latitude.
type projection func(x, y float64) (lng, lat float64)

func lonLatPassthrough(x, y float64) (float64, float64) { return x, y }

// bngToLonLat converts OSGB36 National Grid eastings/northings to WGS84.
func bngToLonLat() projection {
	transform := wgs84.OSGB36NationalGrid().To(wgs84.LonLat())
	return func(x, y float64) (float64, float64) {
		lng, lat, _ := transform(x, y, 0)
		return lng, lat
	}
}

// detectProjection picks the vertex projection for a shapefile. The .prj
// sidecar is authoritative when present; without one, a bounding box outside
// the longitude/latitude range means the file carries National Grid meters,
// which is how the London Datastore publishes its ESRI boundary sets.
func detectProjection(shpPath string, box shp.Box) projection {
	prjPath := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
	if wkt, err := os.ReadFile(prjPath); err == nil {
		u := strings.ToUpper(string(wkt))
		if strings.Contains(u, "OSGB") || strings.Contains(u, "BRITISH_NATIONAL_GRID") || strings.Contains(u, "27700") {
			zap.L().Info("reprojecting boundaries from british national grid", zap.String("path", shpPath))
			return bngToLonLat()
		}
		return lonLatPassthrough
	}
	if box.MinX < -180 || box.MaxX > 180 || box.MinY < -90 || box.MaxY > 90 {
		zap.L().Info("reprojecting boundaries from british national grid",
			zap.String("path", shpPath),
			zap.String("reason", "bounding box outside lon/lat range"))
		return bngToLonLat()
	}
	return lonLatPassthrough
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon,
// projecting every vertex to WGS84. Shapefile polygons carry every ring as a
// flat part list; each part becomes its own single-ring polygon, which is
// sufficient for containment tests on boundaries without holes.
func polygonToMultiPolygon(p *shp.Polygon, proj projection) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			lng, lat := proj(p.Points[j].X, p.Points[j].Y)
			flat = append(flat, lng, lat)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("districts: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("districts: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// findFileByExt returns the first of the given paths carrying the extension.
func findFileByExt(paths []string, ext string) (string, error) {
	for _, p := range paths {
		if strings.HasSuffix(strings.ToLower(p), ext) {
			return p, nil
		}
	}
	return "", eris.Errorf("no %s file among %d extracted files", ext, len(paths))
}

// fieldIndex returns the index of a named field in the shapefile, or -1.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
