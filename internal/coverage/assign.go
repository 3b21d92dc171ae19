package coverage

import (
	"context"

	"github.com/rotisserie/eris"
)

// LoadRecord is the number of demand points whose nearest infrastructure
// point is the one at Index.
type LoadRecord struct {
	Index      int      `json:"index"`
	Point      GeoPoint `json:"point"`
	Dependents int      `json:"dependents"`
}

// Assign maps each demand point to its nearest infrastructure point and
// returns one LoadRecord per infrastructure point in input order. Workers
// keep private counters that are summed at the end, so the result does not
// depend on scheduling. The dependents always sum to len(demand).
func Assign(ctx context.Context, demand []GeoPoint, infra PointIndex, workers int) ([]LoadRecord, error) {
	if infra == nil || infra.Len() == 0 {
		return nil, eris.Wrap(ErrNoInfrastructure, "coverage: assign demand to an empty infrastructure set")
	}
	if err := validatePoints(demand); err != nil {
		return nil, err
	}

	n := infra.Len()
	_, chunks := chunkPlan(len(demand), workers)
	partials := make([][]int, chunks)

	err := forChunks(ctx, len(demand), workers, func(chunk, lo, hi int) error {
		counts := make([]int, n)
		for i := lo; i < hi; i++ {
			idx, _, err := infra.Nearest(demand[i])
			if err != nil {
				return err
			}
			counts[idx]++
		}
		partials[chunk] = counts
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]LoadRecord, n)
	for i := range records {
		records[i] = LoadRecord{Index: i, Point: infra.Point(i)}
	}
	for _, counts := range partials {
		for i, c := range counts {
			records[i].Dependents += c
		}
	}
	return records, nil
}

// AssignPoints builds an Engine over infra with metric and calls Assign.
func AssignPoints(ctx context.Context, demand, infra []GeoPoint, metric Metric, workers int) ([]LoadRecord, error) {
	if len(infra) == 0 {
		return nil, eris.Wrap(ErrNoInfrastructure, "coverage: assign demand to an empty infrastructure set")
	}
	engine, err := NewEngine(infra, metric)
	if err != nil {
		return nil, err
	}
	return Assign(ctx, demand, engine, workers)
}
