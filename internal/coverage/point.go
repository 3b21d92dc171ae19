// Package coverage implements the spatial aggregation and ranking engine: grid
// generation inside a boundary, radius counts and nearest-point queries over
// point sets, demand-to-infrastructure assignment, index scoring and ranking.
//
// The package holds no global state and performs no I/O or logging.
package coverage

import "math"

// KMPerDegree is the equatorial approximation used by the planar model and by
// callers converting kilometres to a grid step.
const KMPerDegree = 111.0

// KMToDegrees converts a distance in kilometres to degrees at ~111 km/degree.
func KMToDegrees(km float64) float64 {
	return km / KMPerDegree
}

// GeoPoint is a longitude/latitude pair in decimal degrees.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// BBox is an axis-aligned bounding box in degrees.
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Degenerate reports whether the box has no extent on either axis.
func (b BBox) Degenerate() bool {
	return !(b.MaxLon > b.MinLon) || !(b.MaxLat > b.MinLat)
}

// Validate rejects boxes with NaN/Inf corners or inverted axes.
func (b BBox) Validate() error {
	for _, v := range []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidf("coverage: bbox has non-finite corner %v", b)
		}
	}
	if b.MinLon > b.MaxLon || b.MinLat > b.MaxLat {
		return invalidf("coverage: bbox min exceeds max %v", b)
	}
	return nil
}

// boundsOf returns the bounding box of a point set. ok is false for an empty set.
func boundsOf(points []GeoPoint) (b BBox, ok bool) {
	if len(points) == 0 {
		return BBox{}, false
	}
	b = BBox{MinLon: points[0].Lon, MinLat: points[0].Lat, MaxLon: points[0].Lon, MaxLat: points[0].Lat}
	for _, p := range points[1:] {
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
	}
	return b, true
}
