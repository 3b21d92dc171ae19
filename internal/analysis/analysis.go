// Package analysis runs one coverage analysis end to end: it loads the
// boundary and point sets from a source, drives the coverage engine, and
// returns the ranking with run metadata.
package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/source"
)

// Result is the outcome of one run.
type Result struct {
	RunID       string            `json:"run_id"`
	Request     Request           `json:"request"`
	Title       string            `json:"title"`
	HighMeans   string            `json:"high_means"`
	Subject     coverage.Subject  `json:"subject"`
	GridSize    int               `json:"grid_size"`
	DemandCount int               `json:"demand_count"`
	InfraCount  int               `json:"infra_count"`
	StartedAt   time.Time         `json:"started_at"`
	Elapsed     time.Duration     `json:"elapsed_ns"`
	Summary     Summary           `json:"summary"`
	Ranking     *coverage.Ranking `json:"ranking"`
}

// Runner executes requests against one source. It is safe for concurrent use
// when the source is.
type Runner struct {
	src source.Source
	now func() time.Time
}

// NewRunner returns a Runner reading from src.
func NewRunner(src source.Source) *Runner {
	return &Runner{src: src, now: time.Now}
}

// Run validates req, loads its inputs, and scores and ranks every subject.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	def := req.Index.Definition()
	res := &Result{
		RunID:     uuid.New().String(),
		Request:   req,
		Title:     def.Title,
		HighMeans: def.HighMeans,
		Subject:   def.Subject,
		StartedAt: r.now(),
	}
	log := zap.L().With(
		zap.String("component", "analysis"),
		zap.String("run_id", res.RunID),
		zap.String("index", req.Index.String()),
		zap.String("area", req.Area()),
	)
	log.Info("analysis: starting",
		zap.Float64("radius_km", req.RadiusKM),
		zap.Float64("step_degrees", req.StepDegrees),
		zap.String("distance_model", string(req.Metric.Model)),
	)

	var (
		records []coverage.ScoredRecord
		err     error
	)
	if def.Subject == coverage.SubjectInfrastructure {
		records, err = r.runInfrastructure(ctx, req, res)
	} else {
		records, err = r.runCells(ctx, req, res, log)
	}
	if err != nil {
		log.Warn("analysis: failed", zap.Error(err))
		return nil, err
	}

	if def.Form == coverage.FormFlag {
		res.Ranking, err = coverage.Flagged(records, req.TopK, req.BottomK)
	} else {
		res.Ranking, err = coverage.Rank(records, req.EffectiveDirection(), req.TopK, req.BottomK)
	}
	if err != nil {
		return nil, err
	}

	res.Summary = Summarize(res.Ranking.Records)
	res.Elapsed = r.now().Sub(res.StartedAt)
	log.Info("analysis: complete",
		zap.Int("grid_size", res.GridSize),
		zap.Int("demand_points", res.DemandCount),
		zap.Int("infra_points", res.InfraCount),
		zap.Int("ranked", len(res.Ranking.Records)),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// Grid builds the candidate cell centers for req without scoring them.
func (r *Runner) Grid(ctx context.Context, req Request) ([]coverage.GeoPoint, error) {
	if req.BBox != nil {
		return coverage.GenerateBox(*req.BBox, req.StepDegrees)
	}
	if req.Region == "" {
		return nil, eris.Wrap(coverage.ErrInvalidParameter, "analysis: region or bbox is required")
	}
	boundary, err := r.src.Boundary(ctx, req.Region)
	if err != nil {
		return nil, err
	}
	return coverage.Generate(boundary, req.StepDegrees)
}

func (r *Runner) runCells(ctx context.Context, req Request, res *Result, log *zap.Logger) ([]coverage.ScoredRecord, error) {
	grid, err := r.Grid(ctx, req)
	if err != nil {
		return nil, err
	}
	res.GridSize = len(grid)
	log.Debug("analysis: grid generated", zap.Int("cells", len(grid)))

	opts := coverage.AggregateOptions{
		RadiusKM:      req.RadiusKM,
		CountDemand:   req.Index.UsesDemand(),
		CountInfra:    req.Index.UsesInfraCounts(),
		Nearest:       req.Index.Definition().Form == coverage.FormDistance,
		NearestPolicy: req.Nearest,
		Workers:       req.Workers,
	}

	var demand coverage.PointIndex
	if opts.CountDemand {
		pts, err := r.src.Points(ctx, req.Demand)
		if err != nil {
			return nil, err
		}
		res.DemandCount = len(pts)
		if demand, err = coverage.NewEngine(pts, req.Metric); err != nil {
			return nil, err
		}
	}

	pts, err := r.src.Points(ctx, req.Infra)
	if err != nil {
		return nil, err
	}
	res.InfraCount = len(pts)
	infra, err := coverage.NewEngine(pts, req.Metric)
	if err != nil {
		return nil, err
	}

	cells, err := coverage.Aggregate(ctx, grid, demand, infra, opts)
	if err != nil {
		return nil, err
	}
	return coverage.ScoreCells(req.Index, cells)
}

func (r *Runner) runInfrastructure(ctx context.Context, req Request, res *Result) ([]coverage.ScoredRecord, error) {
	demand, err := r.src.Points(ctx, req.Demand)
	if err != nil {
		return nil, err
	}
	infra, err := r.src.Points(ctx, req.Infra)
	if err != nil {
		return nil, err
	}
	res.DemandCount, res.InfraCount = len(demand), len(infra)

	loads, err := coverage.AssignPoints(ctx, demand, infra, req.Metric, req.Workers)
	if err != nil {
		return nil, err
	}
	return coverage.ScoreLoads(req.Index, loads)
}
