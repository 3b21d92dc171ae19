package render

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/coverage"
)

// writeGeoJSON writes a FeatureCollection with one Point feature per ranked
// record. Features carry their rank and whether they fall in the top or
// bottom slice.
func writeGeoJSON(w io.Writer, res *analysis.Result) error {
	fc, err := FeatureCollection(res)
	if err != nil {
		return err
	}
	b, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "render: encode geojson")
	}
	_, err = w.Write(b)
	return eris.Wrap(err, "render: write geojson")
}

// FeatureCollection converts the ranking of res to GeoJSON features.
func FeatureCollection(res *analysis.Result) (*geojson.FeatureCollection, error) {
	rk := res.Ranking
	n := len(rk.Records)
	topN, bottomStart := len(rk.TopK), n-len(rk.BottomK)

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, n)}
	for i, r := range rowsOf(rk.Records, 1) {
		pt, err := geom.NewPoint(geom.XY).SetCoords(geom.Coord{r.Lon, r.Lat})
		if err != nil {
			return nil, eris.Wrapf(err, "render: point for record %d", r.Seq)
		}
		props := map[string]interface{}{
			"index":  res.Request.Index.String(),
			"rank":   r.Rank,
			"seq":    r.Seq,
			"score":  roundScore(r.Score),
			"top":    i < topN,
			"bottom": i >= bottomStart,
		}
		switch res.Subject {
		case coverage.SubjectInfrastructure:
			props["dependents"] = r.Dependents
		default:
			props["demand_count"] = r.Demand
			props["infra_count"] = r.Infra
			props["flag"] = r.Flag
			if r.NearestKM != nil {
				props["nearest_infra_km"] = *r.NearestKM
			}
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.Itoa(r.Seq),
			Geometry:   pt,
			Properties: props,
		})
	}
	return fc, nil
}

func roundScore(v float64) float64 {
	f, _ := strconv.ParseFloat(Score(v), 64)
	return f
}
