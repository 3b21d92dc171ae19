package coverage

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// CellAggregate holds the counts observed around one grid cell center.
type CellAggregate struct {
	Index          int      `json:"index"`
	Center         GeoPoint `json:"center"`
	DemandCount    int      `json:"demand_count"`
	InfraCount     int      `json:"infra_count"`
	NearestInfraKM *float64 `json:"nearest_infra_km"`
}

// NearestPolicy bounds nearest-infrastructure lookups for cells. With
// MaxSearchKM == 0 the search is unbounded. When a bounded search finds
// nothing, FallbackKM is reported if positive; otherwise the distance is nil.
type NearestPolicy struct {
	MaxSearchKM float64 `json:"max_search_km"`
	FallbackKM  float64 `json:"fallback_km"`
}

// Validate rejects negative bounds.
func (p NearestPolicy) Validate() error {
	if p.MaxSearchKM < 0 || p.FallbackKM < 0 {
		return invalidf("coverage: nearest policy bounds must be >= 0 (got %+v)", p)
	}
	return nil
}

// AggregateOptions configures Aggregate.
type AggregateOptions struct {
	RadiusKM float64
	// Count demand and infrastructure points within RadiusKM.
	CountDemand bool
	CountInfra  bool
	// Record the distance to the nearest infrastructure point.
	Nearest       bool
	NearestPolicy NearestPolicy
	// Workers caps parallelism; <= 0 uses GOMAXPROCS.
	Workers int
}

// Validate checks the options before any work starts.
func (o AggregateOptions) Validate() error {
	if err := validateRadius(o.RadiusKM); err != nil {
		return err
	}
	return o.NearestPolicy.Validate()
}

// Aggregate computes a CellAggregate per grid center. Cells are split into
// contiguous chunks processed in parallel; each chunk writes only its own
// slots, so the output is identical to a sequential pass. demand or infra may
// be nil when the corresponding option is off.
func Aggregate(ctx context.Context, grid []GeoPoint, demand, infra PointIndex, opts AggregateOptions) ([]CellAggregate, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.CountDemand && demand == nil {
		return nil, invalidf("coverage: demand index required for demand counts")
	}
	if (opts.CountInfra || opts.Nearest) && infra == nil {
		return nil, invalidf("coverage: infrastructure index required")
	}

	out := make([]CellAggregate, len(grid))
	err := forChunks(ctx, len(grid), opts.Workers, func(_, lo, hi int) error {
		for i := lo; i < hi; i++ {
			cell := CellAggregate{Index: i, Center: grid[i]}
			if opts.CountDemand {
				n, err := demand.CountWithinRadius(grid[i], opts.RadiusKM)
				if err != nil {
					return err
				}
				cell.DemandCount = n
			}
			if opts.CountInfra {
				n, err := infra.CountWithinRadius(grid[i], opts.RadiusKM)
				if err != nil {
					return err
				}
				cell.InfraCount = n
			}
			if opts.Nearest {
				km, err := nearestKM(infra, grid[i], opts.NearestPolicy)
				if err != nil {
					return err
				}
				cell.NearestInfraKM = km
			}
			out[i] = cell
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func nearestKM(infra PointIndex, center GeoPoint, policy NearestPolicy) (*float64, error) {
	if infra.Len() == 0 {
		return fallback(policy), nil
	}
	if policy.MaxSearchKM == 0 {
		_, d, err := infra.Nearest(center)
		if err != nil {
			return nil, err
		}
		return &d, nil
	}
	_, d, ok, err := infra.NearestWithin(center, policy.MaxSearchKM)
	if err != nil {
		return nil, err
	}
	if !ok {
		return fallback(policy), nil
	}
	return &d, nil
}

func fallback(policy NearestPolicy) *float64 {
	if policy.FallbackKM > 0 {
		v := policy.FallbackKM
		return &v
	}
	return nil
}

// chunkPlan splits n items into contiguous chunks, one per worker.
func chunkPlan(n, workers int) (size, count int) {
	if n == 0 {
		return 0, 0
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)
	size = (n + workers - 1) / workers
	return size, (n + size - 1) / size
}

// forChunks runs fn over [0, n) in parallel chunks. fn receives the chunk
// number and its half-open range.
func forChunks(ctx context.Context, n, workers int, fn func(chunk, lo, hi int) error) error {
	size, count := chunkPlan(n, workers)
	if count == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(count)
	for c := 0; c < count; c++ {
		lo := c * size
		hi := min(lo+size, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(c, lo, hi)
		})
	}
	return g.Wait()
}
