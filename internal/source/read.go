package source

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

// Column names accepted for point coordinates in CSV headers.
var (
	lonColumns = []string{"lon", "lng", "long", "longitude", "x"}
	latColumns = []string{"lat", "latitude", "y"}
)

// ReadPointsFile reads points from a .csv, .geojson/.json, or .shp file,
// preserving file order.
func ReadPointsFile(path string) ([]coverage.GeoPoint, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "source: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadPointsCSV(f)
	case ".geojson", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "source: read %s", path)
		}
		return ReadPointsGeoJSON(data)
	case ".shp":
		return readShapefilePoints(path)
	default:
		return nil, eris.Wrapf(coverage.ErrInvalidParameter, "source: unsupported point file %s", path)
	}
}

// ReadPointsCSV reads a CSV with a header naming longitude and latitude
// columns. Blank lines are skipped; other columns are ignored.
func ReadPointsCSV(r io.Reader) ([]coverage.GeoPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "source: read csv header")
	}
	lonIdx, latIdx := columnIndex(header, lonColumns), columnIndex(header, latColumns)
	if lonIdx < 0 || latIdx < 0 {
		return nil, eris.Wrapf(coverage.ErrInvalidParameter, "source: csv header %v has no lon/lat columns", header)
	}

	var points []coverage.GeoPoint
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "source: read csv line %d", line)
		}
		if len(rec) <= max(lonIdx, latIdx) {
			return nil, eris.Wrapf(coverage.ErrInvalidParameter, "source: csv line %d has %d fields", line, len(rec))
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(rec[lonIdx]), 64)
		if err != nil {
			return nil, eris.Wrapf(coverage.ErrInvalidParameter, "source: csv line %d: bad longitude %q", line, rec[lonIdx])
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(rec[latIdx]), 64)
		if err != nil {
			return nil, eris.Wrapf(coverage.ErrInvalidParameter, "source: csv line %d: bad latitude %q", line, rec[latIdx])
		}
		points = append(points, coverage.GeoPoint{Lon: lon, Lat: lat})
	}
	return points, nil
}

func columnIndex(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

// ReadPointsGeoJSON collects Point and MultiPoint coordinates from a
// geometry, Feature, or FeatureCollection document.
func ReadPointsGeoJSON(data []byte) ([]coverage.GeoPoint, error) {
	geoms, err := decodeGeoJSON(data)
	if err != nil {
		return nil, err
	}
	var points []coverage.GeoPoint
	for _, g := range geoms {
		switch t := g.(type) {
		case *geom.Point:
			points = append(points, coverage.GeoPoint{Lon: t.X(), Lat: t.Y()})
		case *geom.MultiPoint:
			for i := 0; i < t.NumPoints(); i++ {
				p := t.Point(i)
				points = append(points, coverage.GeoPoint{Lon: p.X(), Lat: p.Y()})
			}
		case nil:
		default:
			return nil, eris.Wrapf(coverage.ErrInvalidParameter, "source: expected point geometry, got %T", g)
		}
	}
	return points, nil
}

// ReadBoundaryGeoJSON merges every Polygon and MultiPolygon in a document
// into one boundary.
func ReadBoundaryGeoJSON(data []byte) (coverage.Boundary, error) {
	geoms, err := decodeGeoJSON(data)
	if err != nil {
		return nil, err
	}
	mp, err := mergePolygons(geoms)
	if err != nil {
		return nil, err
	}
	return coverage.NewBoundary(mp)
}

// ReadRegionFile reads a .geojson, .json or .shp boundary file as one
// MultiPolygon, for storing in a source.
func ReadRegionFile(path string) (*geom.MultiPolygon, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return readShapefileRegion(path)
	case ".geojson", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "source: read %s", path)
		}
		geoms, err := decodeGeoJSON(data)
		if err != nil {
			return nil, err
		}
		return mergePolygons(geoms)
	default:
		return nil, eris.Wrapf(coverage.ErrInvalidParameter, "source: unsupported region file %s", path)
	}
}

func mergePolygons(geoms []geom.T) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	push := func(p *geom.Polygon) error {
		if p.Layout() != geom.XY {
			p = flattenPolygon(p)
		}
		return mp.Push(p)
	}
	for _, g := range geoms {
		switch t := g.(type) {
		case *geom.Polygon:
			if err := push(t); err != nil {
				return nil, eris.Wrap(err, "source: merge polygon")
			}
		case *geom.MultiPolygon:
			for i := 0; i < t.NumPolygons(); i++ {
				if err := push(t.Polygon(i)); err != nil {
					return nil, eris.Wrap(err, "source: merge polygon")
				}
			}
		case nil:
		default:
			return nil, eris.Wrapf(coverage.ErrInvalidParameter, "source: expected polygon geometry, got %T", g)
		}
	}
	return mp, nil
}

// flattenPolygon drops any Z/M ordinates.
func flattenPolygon(p *geom.Polygon) *geom.Polygon {
	stride := p.Layout().Stride()
	flat := p.FlatCoords()
	xy := make([]float64, 0, len(flat)/stride*2)
	for i := 0; i+1 < len(flat); i += stride {
		xy = append(xy, flat[i], flat[i+1])
	}
	ends := make([]int, len(p.Ends()))
	for i, e := range p.Ends() {
		ends[i] = e / stride * 2
	}
	return geom.NewPolygonFlat(geom.XY, xy, ends)
}

func decodeGeoJSON(data []byte) ([]geom.T, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, eris.Wrap(err, "source: decode geojson")
	}

	switch probe.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, eris.Wrap(err, "source: decode feature collection")
		}
		geoms := make([]geom.T, 0, len(fc.Features))
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
		return geoms, nil
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(err, "source: decode feature")
		}
		return []geom.T{f.Geometry}, nil
	default:
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, eris.Wrap(err, "source: decode geometry")
		}
		return []geom.T{g}, nil
	}
}
