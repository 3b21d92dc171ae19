package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/coverage-cli/internal/config"
)

// addAnalysisFlags registers the flags that override the analysis section
// of the configuration.
func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("index", "", "index slug or alias (see `coverage indices`)")
	f.String("region", "", "region name in the source")
	f.Float64Slice("bbox", nil, "bounding box min_lon,min_lat,max_lon,max_lat (replaces --region)")
	f.String("demand", "", "demand point collection")
	f.String("infra", "", "infrastructure point collection")
	f.Float64("radius-km", 0, "counting radius in km")
	f.Float64("step", 0, "grid step in degrees")
	f.Float64("step-km", 0, "grid step in km (converted at 111 km/degree)")
	f.String("model", "", "distance model: planar or great_circle")
	f.Float64("earth-radius-km", 0, "Earth radius for the great-circle model")
	f.Int("top-k", 0, "number of records in the top slice")
	f.Int("bottom-k", 0, "number of records in the bottom slice")
	f.String("direction", "", "ranking direction: desc or asc (default per index)")
	f.Int("workers", 0, "parallel workers")
	f.Float64("max-search-km", 0, "bound nearest-infrastructure searches (0 = unbounded)")
	f.Float64("fallback-km", 0, "distance reported when a bounded search finds nothing")
}

// applyAnalysisFlags copies every flag the user set onto a.
func applyAnalysisFlags(cmd *cobra.Command, a *config.AnalysisConfig) {
	f := cmd.Flags()
	changed := func(name string) bool {
		return f.Lookup(name) != nil && f.Changed(name)
	}
	str := func(name string, dst *string) {
		if changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	num := func(name string, dst *float64) {
		if changed(name) {
			*dst, _ = f.GetFloat64(name)
		}
	}
	integer := func(name string, dst *int) {
		if changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}

	str("index", &a.Index)
	str("demand", &a.Demand)
	str("infra", &a.Infra)
	str("model", &a.DistanceModel)
	str("direction", &a.Direction)
	num("radius-km", &a.RadiusKM)
	num("earth-radius-km", &a.EarthRadiusKM)
	num("max-search-km", &a.Nearest.MaxSearchKM)
	num("fallback-km", &a.Nearest.FallbackKM)
	integer("top-k", &a.TopK)
	integer("bottom-k", &a.BottomK)
	integer("workers", &a.Workers)

	if changed("region") {
		a.Region, _ = f.GetString("region")
		a.BBox = nil
	}
	if changed("bbox") {
		a.BBox, _ = f.GetFloat64Slice("bbox")
	}
	if changed("step") {
		a.StepDegrees, _ = f.GetFloat64("step")
		a.StepKM = 0
	}
	num("step-km", &a.StepKM)
}
