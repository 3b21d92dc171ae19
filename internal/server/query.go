package server

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/config"
	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/render"
)

// responseFormat defaults to JSON; the table format is served as plain text.
func responseFormat(s string) (render.Format, error) {
	if strings.TrimSpace(s) == "" {
		return render.FormatJSON, nil
	}
	return render.ParseFormat(s)
}

func contentType(f render.Format) string {
	switch f {
	case render.FormatJSON:
		return "application/json"
	case render.FormatGeoJSON:
		return "application/geo+json"
	case render.FormatCSV:
		return "text/csv; charset=utf-8"
	case render.FormatHTML:
		return "text/html; charset=utf-8"
	case render.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/plain; charset=utf-8"
	}
}

// requestFromQuery layers query parameters over base and resolves the
// result. Unknown parameters are ignored.
func requestFromQuery(base config.AnalysisConfig, index string, q url.Values) (analysis.Request, error) {
	a := base
	a.BBox = nil
	if len(base.BBox) > 0 {
		a.BBox = append([]float64(nil), base.BBox...)
	}
	a.Index = index

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			*dst = v
		}
	}
	var errs []string
	num := func(key string, dst *float64) {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, key+" must be a number")
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, key+" must be an integer")
				return
			}
			*dst = n
		}
	}

	if q.Has("region") {
		str("region", &a.Region)
		a.BBox = nil
	}
	str("demand", &a.Demand)
	str("infra", &a.Infra)
	str("distance_model", &a.DistanceModel)
	str("direction", &a.Direction)
	num("radius_km", &a.RadiusKM)
	num("step_degrees", &a.StepDegrees)
	num("step_km", &a.StepKM)
	num("earth_radius_km", &a.EarthRadiusKM)
	num("max_search_km", &a.Nearest.MaxSearchKM)
	num("fallback_km", &a.Nearest.FallbackKM)
	integer("top_k", &a.TopK)
	integer("bottom_k", &a.BottomK)

	if v := strings.TrimSpace(q.Get("bbox")); v != "" {
		box, err := parseBBox(v)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			a.BBox = box
		}
	}
	if q.Has("step_degrees") && !q.Has("step_km") {
		a.StepKM = 0
	}

	if len(errs) > 0 {
		return analysis.Request{}, eris.Wrapf(coverage.ErrInvalidParameter, "server: %s", strings.Join(errs, "; "))
	}
	req, err := analysis.RequestFromConfig(a)
	if err != nil {
		return analysis.Request{}, err
	}
	if err := req.Validate(); err != nil {
		return analysis.Request{}, err
	}
	return req, nil
}

func parseBBox(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, eris.New("bbox must be min_lon,min_lat,max_lon,max_lat")
	}
	box := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, eris.New("bbox values must be numbers")
		}
		box[i] = f
	}
	return box, nil
}

// cacheKey identifies a response by its resolved request and format.
// Workers do not affect the result and are left out.
func cacheKey(req analysis.Request, f render.Format) (string, error) {
	req.Workers = 0
	b, err := json.Marshal(req)
	if err != nil {
		return "", eris.Wrap(err, "server: cache key")
	}
	return string(f) + ":" + string(b), nil
}
