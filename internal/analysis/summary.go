package analysis

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

// Summary describes the score distribution of a ranking.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Median float64 `json:"median"`
}

// Summarize computes the score summary. StdDev is the sample standard
// deviation and is 0 for fewer than two records; Median is the empirical
// 0.5 quantile, the lower middle value for even counts.
func Summarize(records []coverage.ScoredRecord) Summary {
	if len(records) == 0 {
		return Summary{}
	}
	scores := make([]float64, len(records))
	for i, r := range records {
		scores[i] = r.Score
	}
	slices.Sort(scores)

	s := Summary{
		Count:  len(scores),
		Min:    floats.Min(scores),
		Max:    floats.Max(scores),
		Mean:   stat.Mean(scores, nil),
		Median: stat.Quantile(0.5, stat.Empirical, scores, nil),
	}
	if len(scores) > 1 {
		s.StdDev = stat.StdDev(scores, nil)
	}
	return s
}
