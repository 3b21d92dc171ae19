package render

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/coverage-cli/internal/analysis"
)

// Sheet names of the workbook.
const (
	SheetSummary = "summary"
	SheetRanking = "ranking"
	SheetTop     = "top"
	SheetBottom  = "bottom"
)

// writeXLSX writes a workbook with the run summary, the full ranking, and the
// top and bottom slices on separate sheets.
func writeXLSX(w io.Writer, res *analysis.Result) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "render: add summary sheet")
	}
	s := res.Summary
	addPair(summary, "index", res.Request.Index.String())
	addPair(summary, "title", heading(res))
	addPair(summary, "high_means", res.HighMeans)
	addPair(summary, "run_id", res.RunID)
	addPair(summary, "started_at", res.StartedAt.UTC().Format(time.RFC3339))
	addNumber(summary, "grid_size", float64(res.GridSize))
	addNumber(summary, "demand_count", float64(res.DemandCount))
	addNumber(summary, "infra_count", float64(res.InfraCount))
	addNumber(summary, "radius_km", res.Request.RadiusKM)
	addNumber(summary, "count", float64(s.Count))
	addNumber(summary, "min", s.Min)
	addNumber(summary, "max", s.Max)
	addNumber(summary, "mean", s.Mean)
	addNumber(summary, "median", s.Median)
	addNumber(summary, "stddev", s.StdDev)

	rk := res.Ranking
	sheets := []struct {
		name string
		rows []row
	}{
		{SheetRanking, rowsOf(rk.Records, 1)},
		{SheetTop, rowsOf(rk.TopK, 1)},
		{SheetBottom, bottomRows(rk)},
	}
	for _, sh := range sheets {
		sheet, err := f.AddSheet(sh.name)
		if err != nil {
			return eris.Wrapf(err, "render: add %s sheet", sh.name)
		}
		header := sheet.AddRow()
		for _, c := range columns {
			header.AddCell().SetString(c)
		}
		for _, r := range sh.rows {
			addRecordRow(sheet, r)
		}
	}

	return eris.Wrap(f.Write(w), "render: write xlsx")
}

func addPair(sheet *xlsx.Sheet, key, value string) {
	r := sheet.AddRow()
	r.AddCell().SetString(key)
	r.AddCell().SetString(value)
}

func addNumber(sheet *xlsx.Sheet, key string, value float64) {
	r := sheet.AddRow()
	r.AddCell().SetString(key)
	r.AddCell().SetFloat(value)
}

func addRecordRow(sheet *xlsx.Sheet, r row) {
	x := sheet.AddRow()
	x.AddCell().SetInt(r.Rank)
	x.AddCell().SetInt(r.Seq)
	x.AddCell().SetFloat(r.Lon)
	x.AddCell().SetFloat(r.Lat)
	x.AddCell().SetFloat(roundScore(r.Score))
	x.AddCell().SetBool(r.Flag)
	x.AddCell().SetInt(r.Demand)
	x.AddCell().SetInt(r.Infra)
	if r.NearestKM != nil {
		x.AddCell().SetFloat(*r.NearestKM)
	} else {
		x.AddCell().SetString("")
	}
	x.AddCell().SetInt(r.Dependents)
}
