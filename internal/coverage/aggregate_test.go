package coverage

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_MatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	box := BBox{MinLon: 76.0, MinLat: 8.0, MaxLon: 80.5, MaxLat: 13.5}
	demandPts := randomPoints(r, 1500, box)
	infraPts := randomPoints(r, 200, box)
	grid, err := GenerateBox(box, 0.3)
	require.NoError(t, err)

	m := mustMetric(t, GreatCircle, EarthRadiusEquatorialKM)
	demand, err := NewEngine(demandPts, m)
	require.NoError(t, err)
	infra, err := NewEngine(infraPts, m)
	require.NoError(t, err)
	bruteDemand, err := NewBruteForce(demandPts, m)
	require.NoError(t, err)
	bruteInfra, err := NewBruteForce(infraPts, m)
	require.NoError(t, err)

	opts := AggregateOptions{RadiusKM: 30, CountDemand: true, CountInfra: true, Nearest: true, Workers: 1}
	want, err := Aggregate(context.Background(), grid, bruteDemand, bruteInfra, opts)
	require.NoError(t, err)

	for _, workers := range []int{1, 4, 16, 0} {
		opts.Workers = workers
		got, err := Aggregate(context.Background(), grid, demand, infra, opts)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("workers=%d (-want +got):\n%s", workers, diff)
		}
	}
}

func TestAggregate_OnlyRequestedCounts(t *testing.T) {
	m := mustMetric(t, Planar, EarthRadiusMeanKM)
	demand, err := NewEngine([]GeoPoint{{0, 0}, {0, 0.01}}, m)
	require.NoError(t, err)

	cells, err := Aggregate(context.Background(), []GeoPoint{{0, 0}, {5, 5}}, demand, nil,
		AggregateOptions{RadiusKM: 5, CountDemand: true})
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, 2, cells[0].DemandCount)
	assert.Zero(t, cells[1].DemandCount)
	assert.Zero(t, cells[0].InfraCount)
	assert.Nil(t, cells[0].NearestInfraKM)
	assert.Equal(t, 1, cells[1].Index)
}

func TestAggregate_NearestPolicy(t *testing.T) {
	m := mustMetric(t, Planar, EarthRadiusMeanKM)
	infra, err := NewEngine([]GeoPoint{{0, 1}}, m)
	require.NoError(t, err)
	grid := []GeoPoint{{0, 0}, {0, 0.9}}

	cells, err := Aggregate(context.Background(), grid, nil, infra, AggregateOptions{Nearest: true})
	require.NoError(t, err)
	require.NotNil(t, cells[0].NearestInfraKM)
	assert.InDelta(t, 111.0, *cells[0].NearestInfraKM, 1e-9)

	bounded := AggregateOptions{Nearest: true, NearestPolicy: NearestPolicy{MaxSearchKM: 50}}
	cells, err = Aggregate(context.Background(), grid, nil, infra, bounded)
	require.NoError(t, err)
	assert.Nil(t, cells[0].NearestInfraKM)
	require.NotNil(t, cells[1].NearestInfraKM)
	assert.InDelta(t, 11.1, *cells[1].NearestInfraKM, 1e-9)

	bounded.NearestPolicy.FallbackKM = 50
	cells, err = Aggregate(context.Background(), grid, nil, infra, bounded)
	require.NoError(t, err)
	require.NotNil(t, cells[0].NearestInfraKM)
	assert.Equal(t, 50.0, *cells[0].NearestInfraKM)
}

func TestAggregate_EmptyInfrastructureLeavesDistanceNil(t *testing.T) {
	infra, err := NewEngine(nil, mustMetric(t, Planar, EarthRadiusMeanKM))
	require.NoError(t, err)

	cells, err := Aggregate(context.Background(), []GeoPoint{{0, 0}}, nil, infra,
		AggregateOptions{RadiusKM: 5, CountInfra: true, Nearest: true})
	require.NoError(t, err)
	assert.Nil(t, cells[0].NearestInfraKM)
	assert.Zero(t, cells[0].InfraCount)
}

func TestAggregate_Validation(t *testing.T) {
	infra, err := NewEngine([]GeoPoint{{0, 0}}, mustMetric(t, Planar, EarthRadiusMeanKM))
	require.NoError(t, err)
	grid := []GeoPoint{{0, 0}}

	_, err = Aggregate(context.Background(), grid, nil, infra, AggregateOptions{RadiusKM: -1, CountInfra: true})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Aggregate(context.Background(), grid, nil, infra, AggregateOptions{RadiusKM: 1, CountDemand: true})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Aggregate(context.Background(), grid, nil, nil, AggregateOptions{Nearest: true})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Aggregate(context.Background(), grid, nil, infra,
		AggregateOptions{Nearest: true, NearestPolicy: NearestPolicy{FallbackKM: -3}})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestAggregate_EmptyGrid(t *testing.T) {
	cells, err := Aggregate(context.Background(), nil, nil, nil, AggregateOptions{})
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestAggregate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	infra, err := NewEngine([]GeoPoint{{0, 0}}, mustMetric(t, Planar, EarthRadiusMeanKM))
	require.NoError(t, err)

	_, err = Aggregate(ctx, []GeoPoint{{0, 0}, {1, 1}}, nil, infra, AggregateOptions{RadiusKM: 1, CountInfra: true, Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChunkPlan(t *testing.T) {
	size, count := chunkPlan(10, 3)
	assert.Equal(t, 4, size)
	assert.Equal(t, 3, count)

	size, count = chunkPlan(2, 8)
	assert.Equal(t, 1, size)
	assert.Equal(t, 2, count)

	_, count = chunkPlan(0, 4)
	assert.Zero(t, count)
}
