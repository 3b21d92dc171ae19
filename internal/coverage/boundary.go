package coverage

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Boundary is the region an analysis samples. Contains excludes points that
// lie exactly on an edge.
type Boundary interface {
	Contains(p GeoPoint) bool
	Bounds() BBox
}

type polygonRings struct {
	shell []float64
	holes [][]float64
	bbox  BBox
}

// PolygonBoundary is a Boundary over a go-geom Polygon or MultiPolygon.
type PolygonBoundary struct {
	layout geom.Layout
	polys  []polygonRings
	bbox   BBox
}

// NewBoundary wraps a Polygon or MultiPolygon. Empty geometries are accepted
// and contain nothing.
func NewBoundary(g geom.T) (*PolygonBoundary, error) {
	if g == nil {
		return nil, invalidf("coverage: boundary geometry is nil")
	}

	b := &PolygonBoundary{layout: g.Layout()}
	switch t := g.(type) {
	case *geom.Polygon:
		b.addPolygon(t)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			b.addPolygon(t.Polygon(i))
		}
	default:
		return nil, eris.Wrapf(ErrInvalidParameter, "coverage: unsupported boundary geometry %T", g)
	}

	for i, p := range b.polys {
		if i == 0 {
			b.bbox = p.bbox
			continue
		}
		b.bbox.MinLon = min(b.bbox.MinLon, p.bbox.MinLon)
		b.bbox.MinLat = min(b.bbox.MinLat, p.bbox.MinLat)
		b.bbox.MaxLon = max(b.bbox.MaxLon, p.bbox.MaxLon)
		b.bbox.MaxLat = max(b.bbox.MaxLat, p.bbox.MaxLat)
	}
	return b, nil
}

func (b *PolygonBoundary) addPolygon(p *geom.Polygon) {
	if p == nil || p.NumLinearRings() == 0 {
		return
	}
	shell := p.LinearRing(0)
	bounds := shell.Bounds()
	if bounds.IsEmpty() {
		return
	}
	rings := polygonRings{
		shell: shell.FlatCoords(),
		bbox: BBox{
			MinLon: bounds.Min(0), MinLat: bounds.Min(1),
			MaxLon: bounds.Max(0), MaxLat: bounds.Max(1),
		},
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		rings.holes = append(rings.holes, p.LinearRing(i).FlatCoords())
	}
	b.polys = append(b.polys, rings)
}

// Bounds returns the bounding box of all shells.
func (b *PolygonBoundary) Bounds() BBox {
	return b.bbox
}

// Contains reports whether p is strictly inside one of the polygons: inside
// its shell and outside (not on) each of its holes.
func (b *PolygonBoundary) Contains(p GeoPoint) bool {
	c := geom.Coord{p.Lon, p.Lat}
	for _, poly := range b.polys {
		if p.Lon < poly.bbox.MinLon || p.Lon > poly.bbox.MaxLon ||
			p.Lat < poly.bbox.MinLat || p.Lat > poly.bbox.MaxLat {
			continue
		}
		if xy.LocatePointInRing(b.layout, c, poly.shell) != location.Interior {
			continue
		}
		inHole := false
		for _, hole := range poly.holes {
			if xy.LocatePointInRing(b.layout, c, hole) != location.Exterior {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}
