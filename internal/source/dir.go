package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

var (
	boundaryExts = []string{".geojson", ".json", ".shp"}
	pointExts    = []string{".csv", ".geojson", ".json", ".shp"}
)

// Dir reads <region>.geojson|.shp boundaries and <collection>.csv|.geojson|.shp
// point files from one directory.
type Dir struct {
	root string
}

// NewDir opens a directory source.
func NewDir(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open dir %s", root)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("source: %s is not a directory", root)
	}
	return &Dir{root: root}, nil
}

// Boundary reads the region file.
func (d *Dir) Boundary(_ context.Context, region string) (coverage.Boundary, error) {
	path, err := d.find(region, boundaryExts)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, notFound("region", region)
	}

	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return readShapefileBoundary(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", path)
	}
	b, err := ReadBoundaryGeoJSON(data)
	if err != nil {
		return nil, eris.Wrapf(err, "source: region %q", region)
	}
	return b, nil
}

// Points reads the collection file.
func (d *Dir) Points(_ context.Context, collection string) ([]coverage.GeoPoint, error) {
	path, err := d.find(collection, pointExts)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, notFound("collection", collection)
	}

	points, err := ReadPointsFile(path)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("source: loaded collection",
		zap.String("driver", "file"),
		zap.String("path", path),
		zap.Int("points", len(points)),
	)
	return points, nil
}

// Close is a no-op.
func (d *Dir) Close() error { return nil }

// find returns the first existing file for name, trying the name as given and
// its snake_case form with each extension. It returns "" when none exists.
func (d *Dir) find(name string, exts []string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", eris.Wrapf(coverage.ErrInvalidParameter, "source: invalid name %q", name)
	}

	bases := []string{name}
	if snake := snakeCase(name); snake != name {
		bases = append(bases, snake)
	}
	for _, base := range bases {
		for _, ext := range exts {
			path := filepath.Join(d.root, base+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", nil
}

func snakeCase(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
