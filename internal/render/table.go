package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/coverage"
)

// writeTable prints the heading, the top and bottom slices, and the score
// summary.
func writeTable(out io.Writer, res *analysis.Result) error {
	rk := res.Ranking
	def := res.Request.Index.Definition()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, heading(res))
	_, _ = fmt.Fprintf(w, "High score:\t%s\n", def.HighMeans)
	if def.Subject == coverage.SubjectCell {
		_, _ = fmt.Fprintf(w, "Grid cells:\t%d\n", res.GridSize)
		_, _ = fmt.Fprintf(w, "Radius:\t%s km\n", strconv.FormatFloat(res.Request.RadiusKM, 'f', -1, 64))
	}
	if res.Request.Index.UsesDemand() {
		_, _ = fmt.Fprintf(w, "Demand points:\t%d\n", res.DemandCount)
	}
	_, _ = fmt.Fprintf(w, "Infrastructure points:\t%d\n", res.InfraCount)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.RunID)
	if err := w.Flush(); err != nil {
		return err
	}

	if def.Form == coverage.FormFlag {
		_, _ = fmt.Fprintf(out, "\nFlagged cells: %d\n", len(rk.Records))
		writeRows(out, def, rowsOf(rk.TopK, 1))
		return nil
	}

	order := "highest"
	if rk.Direction == coverage.Ascending {
		order = "lowest"
	}
	_, _ = fmt.Fprintf(out, "\nTop %d (%s first)\n", len(rk.TopK), order)
	writeRows(out, def, rowsOf(rk.TopK, 1))
	_, _ = fmt.Fprintf(out, "\nBottom %d\n", len(rk.BottomK))
	writeRows(out, def, bottomRows(rk))

	s := res.Summary
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "\nSummary")
	_, _ = fmt.Fprintf(w, "Count:\t%d\n", s.Count)
	_, _ = fmt.Fprintf(w, "Min:\t%s\n", Score(s.Min))
	_, _ = fmt.Fprintf(w, "Max:\t%s\n", Score(s.Max))
	_, _ = fmt.Fprintf(w, "Mean:\t%s\n", Score(s.Mean))
	_, _ = fmt.Fprintf(w, "Median:\t%s\n", Score(s.Median))
	_, _ = fmt.Fprintf(w, "Std dev:\t%s\n", Score(s.StdDev))
	return w.Flush()
}

func writeRows(out io.Writer, def coverage.Definition, rows []row) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, "(none)")
		return
	}

	var header []string
	switch {
	case def.Subject == coverage.SubjectInfrastructure:
		header = []string{"RANK", "LON", "LAT", "DEPENDENTS"}
	case def.Form == coverage.FormFlag:
		header = []string{"#", "LON", "LAT", "DEMAND"}
	case def.Form == coverage.FormDistance:
		header = []string{"RANK", "LON", "LAT", "SCORE", "NEAREST_KM"}
	default:
		header = []string{"RANK", "LON", "LAT", "SCORE", "DEMAND", "INFRA"}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))
	rules := make([]string, len(header))
	for i, h := range header {
		rules[i] = strings.Repeat("-", len(h))
	}
	_, _ = fmt.Fprintln(w, strings.Join(rules, "\t"))

	for _, r := range rows {
		var cells []string
		switch {
		case def.Subject == coverage.SubjectInfrastructure:
			cells = []string{strconv.Itoa(r.Rank), coord(r.Lon), coord(r.Lat), strconv.Itoa(r.Dependents)}
		case def.Form == coverage.FormFlag:
			cells = []string{strconv.Itoa(r.Rank), coord(r.Lon), coord(r.Lat), strconv.Itoa(r.Demand)}
		case def.Form == coverage.FormDistance:
			nearest := "-"
			if r.NearestKM != nil {
				nearest = strconv.FormatFloat(*r.NearestKM, 'f', 3, 64)
			}
			cells = []string{strconv.Itoa(r.Rank), coord(r.Lon), coord(r.Lat), Score(r.Score), nearest}
		default:
			cells = []string{strconv.Itoa(r.Rank), coord(r.Lon), coord(r.Lat), Score(r.Score), strconv.Itoa(r.Demand), strconv.Itoa(r.Infra)}
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
}
