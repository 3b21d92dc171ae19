package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/coverage"
)

// Series names of the HTML map.
const (
	SeriesDemand = "demand"
	SeriesAll    = "all"
	SeriesTop    = "top"
	SeriesBottom = "bottom"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// writeHTML renders a lon/lat scatter map. Every ranked record is coloured by
// score; the top and bottom slices are overlaid as separate series. For cell
// indices that read demand, a demand-density layer sized by each cell's
// demand count sits underneath.
func writeHTML(w io.Writer, res *analysis.Result) error {
	rk := res.Ranking
	all := scatterData(rowsOf(rk.Records, 1))
	lo, hi := scoreRange(rk.Records)
	box := extent(rk.Records)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: heading(res), Width: "1000px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    heading(res),
			Subtitle: fmt.Sprintf("high = %s, records=%d, run=%s", res.HighMeans, len(rk.Records), res.RunID),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Min: box.MinLon, Max: box.MaxLon, Name: "Longitude", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: box.MinLat, Max: box.MaxLat, Name: "Latitude", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)

	if res.Subject == coverage.SubjectCell && res.Request.Index.Valid() && res.Request.Index.UsesDemand() {
		scatter.AddSeries(SeriesDemand, demandData(rowsOf(rk.Records, 1)),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}),
		)
	}
	scatter.AddSeries(SeriesAll, all, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries(SeriesTop, scatterData(rowsOf(rk.TopK, 1)),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#d62728"}),
	)
	if !rk.Filtered {
		scatter.AddSeries(SeriesBottom, scatterData(bottomRows(rk)),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#1f77b4"}),
		)
	}

	return eris.Wrap(scatter.Render(w), "render: html chart")
}

func scatterData(rows []row) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(rows))
	for _, r := range rows {
		data = append(data, opts.ScatterData{
			Name:  fmt.Sprintf("#%d", r.Rank),
			Value: []interface{}{r.Lon, r.Lat, roundScore(r.Score)},
		})
	}
	return data
}

// demandData weights cells with demand by symbol size, from 4 px for a single
// point up to 28 px for the densest cell. Cells without demand are omitted.
func demandData(rows []row) []opts.ScatterData {
	peak := 0
	for _, r := range rows {
		peak = max(peak, r.Demand)
	}
	data := make([]opts.ScatterData, 0, len(rows))
	if peak == 0 {
		return data
	}
	for _, r := range rows {
		if r.Demand == 0 {
			continue
		}
		data = append(data, opts.ScatterData{
			Name:       fmt.Sprintf("demand %d", r.Demand),
			Value:      []interface{}{r.Lon, r.Lat, roundScore(r.Score), r.Demand},
			SymbolSize: 4 + 24*r.Demand/peak,
		})
	}
	return data
}

func scoreRange(records []coverage.ScoredRecord) (lo, hi float64) {
	if len(records) == 0 {
		return 0, 1
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, r := range records {
		lo = math.Min(lo, r.Score)
		hi = math.Max(hi, r.Score)
	}
	if lo == hi {
		hi = lo + 1
	}
	return lo, hi
}

// extent pads the bounding box of the records by 5% so edge points stay
// visible.
func extent(records []coverage.ScoredRecord) coverage.BBox {
	if len(records) == 0 {
		return coverage.BBox{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}
	}
	first := records[0].Location()
	b := coverage.BBox{MinLon: first.Lon, MinLat: first.Lat, MaxLon: first.Lon, MaxLat: first.Lat}
	for _, r := range records[1:] {
		p := r.Location()
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
	}
	padLon := math.Max((b.MaxLon-b.MinLon)*0.05, 0.01)
	padLat := math.Max((b.MaxLat-b.MinLat)*0.05, 0.01)
	b.MinLon -= padLon
	b.MaxLon += padLon
	b.MinLat -= padLat
	b.MaxLat += padLat
	return b
}
