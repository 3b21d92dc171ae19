package analysis

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-cli/internal/config"
	"github.com/sells-group/coverage-cli/internal/coverage"
)

// Request is one fully resolved analysis. Exactly one of Region and BBox
// selects the sampled area; infrastructure indices need neither.
type Request struct {
	Index       coverage.Kind          `json:"index"`
	Region      string                 `json:"region,omitempty"`
	BBox        *coverage.BBox         `json:"bbox,omitempty"`
	Demand      string                 `json:"demand"`
	Infra       string                 `json:"infra"`
	RadiusKM    float64                `json:"radius_km"`
	StepDegrees float64                `json:"step_degrees"`
	Metric      coverage.Metric        `json:"metric"`
	TopK        int                    `json:"top_k"`
	BottomK     int                    `json:"bottom_k"`
	Direction   coverage.Direction     `json:"direction,omitempty"`
	Workers     int                    `json:"workers"`
	Nearest     coverage.NearestPolicy `json:"nearest"`
}

// RequestFromConfig resolves the analysis section of the configuration.
func RequestFromConfig(a config.AnalysisConfig) (Request, error) {
	kind, err := coverage.ParseKind(a.Index)
	if err != nil {
		return Request{}, err
	}
	model, err := coverage.ParseDistanceModel(a.DistanceModel)
	if err != nil {
		return Request{}, err
	}
	metric, err := coverage.NewMetric(model, a.EarthRadiusKM)
	if err != nil {
		return Request{}, err
	}
	dir, err := coverage.ParseDirection(a.Direction)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		Index:       kind,
		Region:      a.Region,
		Demand:      a.Demand,
		Infra:       a.Infra,
		RadiusKM:    a.RadiusKM,
		StepDegrees: a.StepInDegrees(),
		Metric:      metric,
		TopK:        a.TopK,
		BottomK:     a.BottomK,
		Direction:   dir,
		Workers:     a.Workers,
		Nearest:     coverage.NearestPolicy{MaxSearchKM: a.Nearest.MaxSearchKM, FallbackKM: a.Nearest.FallbackKM},
	}
	if len(a.BBox) > 0 {
		if len(a.BBox) != 4 {
			return Request{}, eris.Wrapf(coverage.ErrInvalidParameter,
				"analysis: bbox needs 4 values, got %d", len(a.BBox))
		}
		req.BBox = &coverage.BBox{MinLon: a.BBox[0], MinLat: a.BBox[1], MaxLon: a.BBox[2], MaxLat: a.BBox[3]}
		req.Region = ""
	}
	return req, nil
}

// Validate rejects a request before any data is loaded.
func (r Request) Validate() error {
	if !r.Index.Valid() {
		return eris.Wrapf(coverage.ErrInvalidParameter, "analysis: invalid index %d", int(r.Index))
	}
	if _, err := coverage.NewMetric(r.Metric.Model, r.Metric.EarthRadiusKM); err != nil {
		return err
	}
	if r.TopK < 0 || r.BottomK < 0 {
		return eris.Wrapf(coverage.ErrInvalidParameter, "analysis: top_k and bottom_k must be >= 0 (got %d, %d)", r.TopK, r.BottomK)
	}
	if r.Direction != 0 && r.Direction != coverage.Descending && r.Direction != coverage.Ascending {
		return eris.Wrapf(coverage.ErrInvalidParameter, "analysis: invalid direction %d", int(r.Direction))
	}
	if r.Infra == "" {
		return eris.Wrap(coverage.ErrInvalidParameter, "analysis: infra collection is required")
	}
	if r.Index.UsesDemand() && r.Demand == "" {
		return eris.Wrapf(coverage.ErrInvalidParameter, "analysis: %s needs a demand collection", r.Index)
	}
	if err := r.Nearest.Validate(); err != nil {
		return err
	}

	if r.Index.Definition().Subject == coverage.SubjectInfrastructure {
		return nil
	}
	if r.RadiusKM < 0 {
		return eris.Wrapf(coverage.ErrInvalidParameter, "analysis: radius_km must be >= 0 (got %v)", r.RadiusKM)
	}
	if !(r.StepDegrees > 0) {
		return eris.Wrapf(coverage.ErrInvalidParameter, "analysis: step must be > 0 (got %v)", r.StepDegrees)
	}
	if r.Region == "" && r.BBox == nil {
		return eris.Wrap(coverage.ErrInvalidParameter, "analysis: region or bbox is required")
	}
	if r.BBox != nil {
		if err := r.BBox.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EffectiveDirection is the requested direction or the index default.
func (r Request) EffectiveDirection() coverage.Direction {
	if r.Direction != 0 {
		return r.Direction
	}
	if r.Index.Definition().Descending {
		return coverage.Descending
	}
	return coverage.Ascending
}

// Area names the sampled area for logs and file names.
func (r Request) Area() string {
	if r.BBox != nil {
		return "bbox"
	}
	return r.Region
}
