package coverage

import (
	"math"
	"strings"

	"github.com/golang/geo/s2"
)

// DistanceModel selects how point-to-point distance is computed.
type DistanceModel string

const (
	// Planar treats degrees as locally flat at KMPerDegree on both axes. It is
	// an approximation valid for spans of a few hundred kilometres at moderate
	// latitude.
	Planar DistanceModel = "planar"
	// GreatCircle is the haversine distance on a sphere.
	GreatCircle DistanceModel = "great_circle"
)

// Earth radii accepted for the great-circle model.
const (
	EarthRadiusMeanKM       = 6371.0
	EarthRadiusEquatorialKM = 6378.1
)

// ParseDistanceModel accepts the configuration spellings of a model.
func ParseDistanceModel(s string) (DistanceModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "planar", "flat":
		return Planar, nil
	case "great_circle", "great-circle", "haversine", "spherical":
		return GreatCircle, nil
	default:
		return "", invalidf("coverage: unknown distance model %q", s)
	}
}

// Metric computes distances in kilometres for one analysis run.
type Metric struct {
	Model         DistanceModel `json:"model"`
	EarthRadiusKM float64       `json:"earth_radius_km"`
}

// NewMetric validates a model and Earth radius. The radius is only consulted by
// the great-circle model but must be one of the two accepted constants so a
// run never mixes them.
func NewMetric(model DistanceModel, earthRadiusKM float64) (Metric, error) {
	if model != Planar && model != GreatCircle {
		return Metric{}, invalidf("coverage: unknown distance model %q", model)
	}
	if earthRadiusKM != EarthRadiusMeanKM && earthRadiusKM != EarthRadiusEquatorialKM {
		return Metric{}, invalidf("coverage: earth radius must be %v or %v km (got %v)",
			EarthRadiusMeanKM, EarthRadiusEquatorialKM, earthRadiusKM)
	}
	return Metric{Model: model, EarthRadiusKM: earthRadiusKM}, nil
}

// Distance returns the distance between a and b in kilometres.
func (m Metric) Distance(a, b GeoPoint) float64 {
	if m.Model == Planar {
		dx := (b.Lon - a.Lon) * KMPerDegree
		dy := (b.Lat - a.Lat) * KMPerDegree
		return math.Sqrt(dx*dx + dy*dy)
	}
	angle := s2.LatLngFromDegrees(a.Lat, a.Lon).Distance(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return angle.Radians() * m.EarthRadiusKM
}

// windowPad widens search windows so rounding in the distance functions can
// never push a qualifying point outside the window.
const windowPad = 1e-7

// reach returns the half-widths in degrees of a window around center that
// contains every point within km. wrap is true when no longitude bound holds
// (the window reaches a pole or crosses the antimeridian).
func (m Metric) reach(center GeoPoint, km float64) (dLon, dLat float64, wrap bool) {
	if m.Model == Planar {
		d := km/KMPerDegree + windowPad
		return d, d, false
	}

	theta := km / m.EarthRadiusKM
	if theta >= math.Pi {
		return 0, 180, true
	}
	dLat = theta*180/math.Pi + windowPad

	phi := math.Abs(center.Lat) * math.Pi / 180
	if phi+theta >= math.Pi/2 {
		return 0, dLat, true
	}
	s := math.Sin(theta) / math.Cos(phi)
	if s >= 1 {
		return 0, dLat, true
	}
	dLon = math.Asin(s)*180/math.Pi + windowPad
	if center.Lon-dLon < -180 || center.Lon+dLon > 180 {
		return 0, dLat, true
	}
	return dLon, dLat, false
}
