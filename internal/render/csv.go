package render

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-cli/internal/analysis"
)

// writeCSV writes every ranked record, in ranked order, under a fixed header.
func writeCSV(w io.Writer, res *analysis.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return eris.Wrap(err, "render: write csv header")
	}
	for _, r := range rowsOf(res.Ranking.Records, 1) {
		if err := cw.Write(r.strings()); err != nil {
			return eris.Wrap(err, "render: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "render: flush csv")
}
