package source

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

// readShapefileBoundary merges every polygon record of a shapefile into one
// boundary.
func readShapefileBoundary(path string) (coverage.Boundary, error) {
	mp, err := readShapefileRegion(path)
	if err != nil {
		return nil, err
	}
	return coverage.NewBoundary(mp)
}

func readShapefileRegion(path string) (*geom.MultiPolygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	var geoms []geom.T
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		if mp := polygonToMultiPolygon(poly); mp != nil {
			geoms = append(geoms, mp)
		}
	}
	if skipped > 0 {
		zap.L().Debug("source: skipped non-polygon shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return mergePolygons(geoms)
}

// readShapefilePoints reads Point and MultiPoint records in file order.
func readShapefilePoints(path string) ([]coverage.GeoPoint, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	var points []coverage.GeoPoint
	for reader.Next() {
		_, shape := reader.Shape()
		switch s := shape.(type) {
		case *shp.Point:
			points = append(points, coverage.GeoPoint{Lon: s.X, Lat: s.Y})
		case *shp.MultiPoint:
			for _, p := range s.Points {
				points = append(points, coverage.GeoPoint{Lon: p.X, Lat: p.Y})
			}
		default:
			return nil, eris.Wrapf(coverage.ErrInvalidParameter, "source: shapefile %s has non-point record %T", path, shape)
		}
	}
	return points, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Shapefile outer rings are clockwise and holes counter-clockwise; each hole
// is attached to the outer ring that precedes it.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon
	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("source: skipping malformed polygon part", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if xy.IsRingCounterClockwise(geom.XY, flat) && current != nil {
			if err := current.Push(ring); err != nil {
				zap.L().Debug("source: skipping malformed hole", zap.Int32("part", i), zap.Error(err))
			}
			continue
		}
		flush()
		current = geom.NewPolygon(geom.XY)
		if err := current.Push(ring); err != nil {
			zap.L().Debug("source: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			current = nil
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
