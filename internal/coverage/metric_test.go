package coverage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMetric(t testing.TB, model DistanceModel, radius float64) Metric {
	t.Helper()
	m, err := NewMetric(model, radius)
	require.NoError(t, err)
	return m
}

func TestMetric_Planar(t *testing.T) {
	m := mustMetric(t, Planar, EarthRadiusMeanKM)
	assert.InDelta(t, 111.0, m.Distance(GeoPoint{0, 0}, GeoPoint{0, 1}), 1e-9)
	assert.InDelta(t, 111.0, m.Distance(GeoPoint{77, 11}, GeoPoint{78, 11}), 1e-9)
	assert.InDelta(t, 5*111.0, m.Distance(GeoPoint{0, 0}, GeoPoint{3, 4}), 1e-9)
	assert.Zero(t, m.Distance(GeoPoint{77.1, 11.1}, GeoPoint{77.1, 11.1}))
}

func TestMetric_GreatCircle(t *testing.T) {
	mean := mustMetric(t, GreatCircle, EarthRadiusMeanKM)
	eq := mustMetric(t, GreatCircle, EarthRadiusEquatorialKM)

	oneDegree := math.Pi / 180
	assert.InDelta(t, EarthRadiusMeanKM*oneDegree, mean.Distance(GeoPoint{0, 0}, GeoPoint{0, 1}), 1e-9)
	assert.InDelta(t, EarthRadiusEquatorialKM*oneDegree, eq.Distance(GeoPoint{0, 0}, GeoPoint{1, 0}), 1e-9)

	// Longitude degrees shrink with latitude.
	atSixty := mean.Distance(GeoPoint{0, 60}, GeoPoint{1, 60})
	assert.InDelta(t, EarthRadiusMeanKM*oneDegree*0.5, atSixty, 0.05)

	// Across the antimeridian.
	assert.InDelta(t, EarthRadiusMeanKM*oneDegree*0.2, mean.Distance(GeoPoint{179.9, 0}, GeoPoint{-179.9, 0}), 1e-6)
	assert.Zero(t, mean.Distance(GeoPoint{77.1, 11.1}, GeoPoint{77.1, 11.1}))
}

func TestNewMetric_Validation(t *testing.T) {
	_, err := NewMetric("manhattan", EarthRadiusMeanKM)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewMetric(GreatCircle, 6400)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	m, err := NewMetric(GreatCircle, EarthRadiusEquatorialKM)
	require.NoError(t, err)
	assert.Equal(t, GreatCircle, m.Model)
}

func TestParseDistanceModel(t *testing.T) {
	tests := map[string]DistanceModel{
		"planar":        Planar,
		"FLAT":          Planar,
		"great_circle":  GreatCircle,
		"haversine":     GreatCircle,
		" great-circle": GreatCircle,
	}
	for in, want := range tests {
		got, err := ParseDistanceModel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDistanceModel("euclid")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestMetric_ReachCoversRadius(t *testing.T) {
	m := mustMetric(t, GreatCircle, EarthRadiusMeanKM)

	dLon, dLat, wrap := m.reach(GeoPoint{78, 11}, 30)
	require.False(t, wrap)
	// A point due east at 30 km must lie inside the window.
	east := GeoPoint{78 + dLon, 11}
	assert.GreaterOrEqual(t, m.Distance(GeoPoint{78, 11}, east), 30.0)
	north := GeoPoint{78, 11 + dLat}
	assert.GreaterOrEqual(t, m.Distance(GeoPoint{78, 11}, north), 30.0)

	_, _, wrap = m.reach(GeoPoint{0, 89.9}, 50)
	assert.True(t, wrap, "cap containing the pole")

	_, _, wrap = m.reach(GeoPoint{179.95, 0}, 50)
	assert.True(t, wrap, "window crossing the antimeridian")
}

func nan() float64 { return math.NaN() }
