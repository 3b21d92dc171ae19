package coverage

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"
)

// PointIndex answers radius-count and nearest-point queries over a fixed,
// ordered point set. Point indices are positions in the input set.
type PointIndex interface {
	Len() int
	Point(i int) GeoPoint
	CountWithinRadius(center GeoPoint, radiusKM float64) (int, error)
	Nearest(center GeoPoint) (int, float64, error)
	NearestWithin(center GeoPoint, maxKM float64) (int, float64, bool, error)
}

// R-tree node fan-out, matching common rtreego usage.
const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	pointTolerance   = 1e-9
)

type indexedPoint struct {
	idx  int
	rect rtreego.Rect
}

func (p *indexedPoint) Bounds() rtreego.Rect { return p.rect }

// Engine is a PointIndex backed by an R-tree built once over the point set.
// Every query filters R-tree candidates with the exact metric, so answers are
// identical to BruteForce.
type Engine struct {
	points []GeoPoint
	metric Metric
	tree   *rtreego.Rtree
	bounds BBox
	seed   float64
}

// NewEngine indexes points. The slice is copied; later changes by the caller
// are not observed.
func NewEngine(points []GeoPoint, metric Metric) (*Engine, error) {
	if err := validatePoints(points); err != nil {
		return nil, err
	}

	e := &Engine{
		points: append([]GeoPoint(nil), points...),
		metric: metric,
		tree:   rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren),
	}
	for i, p := range e.points {
		e.tree.Insert(&indexedPoint{idx: i, rect: rtreego.Point{p.Lon, p.Lat}.ToRect(pointTolerance)})
	}

	if b, ok := boundsOf(e.points); ok {
		e.bounds = b
		area := (b.MaxLon - b.MinLon) * (b.MaxLat - b.MinLat)
		e.seed = max(math.Sqrt(area/float64(len(e.points))), 1e-6)
	}
	return e, nil
}

// Len returns the number of indexed points.
func (e *Engine) Len() int { return len(e.points) }

// Point returns the i-th point of the input set.
func (e *Engine) Point(i int) GeoPoint { return e.points[i] }

// CountWithinRadius counts points whose distance to center is <= radiusKM.
func (e *Engine) CountWithinRadius(center GeoPoint, radiusKM float64) (int, error) {
	if err := validateRadius(radiusKM); err != nil {
		return 0, err
	}
	n := 0
	for _, i := range e.candidates(center, radiusKM) {
		if e.metric.Distance(center, e.points[i]) <= radiusKM {
			n++
		}
	}
	return n, nil
}

// Nearest returns the closest point to center; equal distances resolve to
// the smallest index.
func (e *Engine) Nearest(center GeoPoint) (int, float64, error) {
	if len(e.points) == 0 {
		return -1, 0, eris.Wrap(ErrNoInfrastructure, "coverage: nearest on empty point set")
	}

	half := e.seed
	for {
		box := BBox{
			MinLon: center.Lon - half, MinLat: center.Lat - half,
			MaxLon: center.Lon + half, MaxLat: center.Lat + half,
		}
		if ids := e.search(box); len(ids) > 0 {
			_, d, _ := e.closest(center, ids, math.Inf(1))
			idx, dist, _ := e.closest(center, e.candidates(center, d), d)
			return idx, dist, nil
		}
		if box.MinLon <= e.bounds.MinLon && box.MinLat <= e.bounds.MinLat &&
			box.MaxLon >= e.bounds.MaxLon && box.MaxLat >= e.bounds.MaxLat {
			// Unreachable with finite points: the box already covers the set.
			return -1, 0, eris.New("coverage: nearest search exhausted bounds")
		}
		half *= 4
	}
}

// NearestWithin is Nearest restricted to points within maxKM. found is false
// when no point qualifies.
func (e *Engine) NearestWithin(center GeoPoint, maxKM float64) (int, float64, bool, error) {
	if err := validateRadius(maxKM); err != nil {
		return -1, 0, false, err
	}
	idx, d, ok := e.closest(center, e.candidates(center, maxKM), maxKM)
	return idx, d, ok, nil
}

// candidates returns the indices of every point that could be within km of
// center, plus possibly some that are not.
func (e *Engine) candidates(center GeoPoint, km float64) []int {
	dLon, dLat, wrap := e.metric.reach(center, km)
	box := BBox{MinLat: center.Lat - dLat, MaxLat: center.Lat + dLat}
	if wrap {
		box.MinLon, box.MaxLon = e.bounds.MinLon-1, e.bounds.MaxLon+1
	} else {
		box.MinLon, box.MaxLon = center.Lon-dLon, center.Lon+dLon
	}
	return e.search(box)
}

func (e *Engine) search(box BBox) []int {
	if len(e.points) == 0 {
		return nil
	}
	w := max(box.MaxLon-box.MinLon, pointTolerance)
	h := max(box.MaxLat-box.MinLat, pointTolerance)
	rect, err := rtreego.NewRect(rtreego.Point{box.MinLon, box.MinLat}, []float64{w, h})
	if err != nil {
		return nil
	}
	hits := e.tree.SearchIntersect(rect)
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.(*indexedPoint).idx
	}
	return ids
}

// closest picks the minimum-distance index among ids with distance <= limit.
func (e *Engine) closest(center GeoPoint, ids []int, limit float64) (int, float64, bool) {
	best, bestD := -1, math.Inf(1)
	for _, i := range ids {
		d := e.metric.Distance(center, e.points[i])
		if d > limit {
			continue
		}
		if best < 0 || d < bestD || (d == bestD && i < best) {
			best, bestD = i, d
		}
	}
	return best, bestD, best >= 0
}

// BruteForce is the O(n)-per-query reference PointIndex.
type BruteForce struct {
	points []GeoPoint
	metric Metric
}

// NewBruteForce wraps points without building any index.
func NewBruteForce(points []GeoPoint, metric Metric) (*BruteForce, error) {
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	return &BruteForce{points: append([]GeoPoint(nil), points...), metric: metric}, nil
}

// Len returns the number of points.
func (b *BruteForce) Len() int { return len(b.points) }

// Point returns the i-th point.
func (b *BruteForce) Point(i int) GeoPoint { return b.points[i] }

// CountWithinRadius evaluates every point.
func (b *BruteForce) CountWithinRadius(center GeoPoint, radiusKM float64) (int, error) {
	if err := validateRadius(radiusKM); err != nil {
		return 0, err
	}
	n := 0
	for _, p := range b.points {
		if b.metric.Distance(center, p) <= radiusKM {
			n++
		}
	}
	return n, nil
}

// Nearest evaluates every point; the first minimum wins.
func (b *BruteForce) Nearest(center GeoPoint) (int, float64, error) {
	if len(b.points) == 0 {
		return -1, 0, eris.Wrap(ErrNoInfrastructure, "coverage: nearest on empty point set")
	}
	idx, d, _ := b.nearest(center, math.Inf(1))
	return idx, d, nil
}

// NearestWithin evaluates every point within maxKM.
func (b *BruteForce) NearestWithin(center GeoPoint, maxKM float64) (int, float64, bool, error) {
	if err := validateRadius(maxKM); err != nil {
		return -1, 0, false, err
	}
	idx, d, ok := b.nearest(center, maxKM)
	return idx, d, ok, nil
}

func (b *BruteForce) nearest(center GeoPoint, limit float64) (int, float64, bool) {
	best, bestD := -1, math.Inf(1)
	for i, p := range b.points {
		d := b.metric.Distance(center, p)
		if d > limit {
			continue
		}
		if best < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD, best >= 0
}

func validateRadius(km float64) error {
	if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
		return invalidf("coverage: radius must be a non-negative number of kilometres (got %v)", km)
	}
	return nil
}

func validatePoints(points []GeoPoint) error {
	for i, p := range points {
		if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
			return invalidf("coverage: point %d has non-finite coordinates", i)
		}
	}
	return nil
}
