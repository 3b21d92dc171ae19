package render

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/coverage"
)

func cellResult(t *testing.T, kind coverage.Kind, topK, bottomK int) *analysis.Result {
	t.Helper()
	centers := []coverage.GeoPoint{{Lon: 77.0, Lat: 11.0}, {Lon: 77.1, Lat: 11.0}, {Lon: 77.0, Lat: 11.1}, {Lon: 77.1, Lat: 11.1}}
	demand := []int{10, 0, 5, 2}
	infra := []int{1, 0, 0, 4}
	cells := make([]coverage.CellAggregate, len(centers))
	for i := range centers {
		cells[i] = coverage.CellAggregate{Index: i, Center: centers[i], DemandCount: demand[i], InfraCount: infra[i]}
	}
	records, err := coverage.ScoreCells(kind, cells)
	require.NoError(t, err)

	req := analysis.Request{Index: kind, Region: "Coimbatore", Demand: "population", Infra: "towers", RadiusKM: 1, StepDegrees: 0.1, TopK: topK, BottomK: bottomK}
	var rk *coverage.Ranking
	if kind.Definition().Form == coverage.FormFlag {
		rk, err = coverage.Flagged(records, topK, bottomK)
	} else {
		rk, err = coverage.Rank(records, req.EffectiveDirection(), topK, bottomK)
	}
	require.NoError(t, err)

	def := kind.Definition()
	return &analysis.Result{
		RunID:       "run-1",
		Request:     req,
		Title:       def.Title,
		HighMeans:   def.HighMeans,
		Subject:     def.Subject,
		GridSize:    len(cells),
		DemandCount: 17,
		InfraCount:  5,
		StartedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Summary:     analysis.Summarize(rk.Records),
		Ranking:     rk,
	}
}

func loadResult(t *testing.T) *analysis.Result {
	t.Helper()
	loads := []coverage.LoadRecord{
		{Index: 0, Point: coverage.GeoPoint{Lon: 77.0, Lat: 11.0}, Dependents: 3},
		{Index: 1, Point: coverage.GeoPoint{Lon: 77.5, Lat: 11.5}, Dependents: 0},
	}
	records, err := coverage.ScoreLoads(coverage.NetworkStress, loads)
	require.NoError(t, err)
	rk, err := coverage.Rank(records, coverage.Descending, 1, 1)
	require.NoError(t, err)
	def := coverage.NetworkStress.Definition()
	return &analysis.Result{
		RunID:       "run-2",
		Request:     analysis.Request{Index: coverage.NetworkStress, Demand: "population", Infra: "towers", TopK: 1, BottomK: 1},
		Title:       def.Title,
		HighMeans:   def.HighMeans,
		Subject:     def.Subject,
		DemandCount: 3,
		InfraCount:  2,
		Summary:     analysis.Summarize(rk.Records),
		Ranking:     rk,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatTable},
		{"table", FormatTable},
		{"TEXT", FormatTable},
		{"csv", FormatCSV},
		{" json ", FormatJSON},
		{"geojson", FormatGeoJSON},
		{"xlsx", FormatXLSX},
		{"excel", FormatXLSX},
		{"html", FormatHTML},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFormat("pdf")
	assert.ErrorIs(t, err, coverage.ErrInvalidParameter)
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"out/ranking.csv", FormatCSV, true},
		{"map.HTML", FormatHTML, true},
		{"map.htm", FormatHTML, true},
		{"cells.geojson", FormatGeoJSON, true},
		{"result.json", FormatJSON, true},
		{"book.xlsx", FormatXLSX, true},
		{"notes.txt", FormatTable, true},
		{"noext", "", false},
		{"image.png", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := FormatForPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatExt(t *testing.T) {
	assert.Equal(t, ".txt", FormatTable.Ext())
	assert.Equal(t, ".geojson", FormatGeoJSON.Ext())
	assert.True(t, FormatXLSX.Binary())
	assert.False(t, FormatCSV.Binary())
	assert.Len(t, Formats(), 6)
}

func TestTitleAndScore(t *testing.T) {
	assert.Equal(t, "Coverage Vulnerability", Title(coverage.CoverageVulnerability))
	assert.Equal(t, "Accessibility By Distance", Title(coverage.AccessibilityByDistance))
	assert.Equal(t, "unknown", Title(coverage.Kind(0)))

	assert.Equal(t, "14.00", Score(14))
	assert.Equal(t, "7.46", Score(7.456))
	assert.Equal(t, "-1.00", Score(-1))
}

func TestWrite_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, nil, FormatTable))
	assert.Error(t, Write(&buf, &analysis.Result{}, FormatTable))

	err := Write(&buf, cellResult(t, coverage.CoverageVulnerability, 1, 1), Format("pdf"))
	assert.True(t, errors.Is(err, coverage.ErrInvalidParameter))
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cellResult(t, coverage.CoverageVulnerability, 1, 1), FormatTable))
	out := buf.String()

	assert.Contains(t, out, "Coverage Vulnerability Index: Coimbatore")
	assert.Contains(t, out, "underserved")
	assert.Contains(t, out, "Top 1 (highest first)")
	assert.Contains(t, out, "Bottom 1")
	assert.Contains(t, out, "14.00")
	assert.Contains(t, out, "-1.00")
	assert.Contains(t, out, "77.0000")
	assert.Contains(t, out, "Summary")
}

func TestWriteTable_BlackSpot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cellResult(t, coverage.BlackSpot, 10, 10), FormatTable))
	out := buf.String()

	// Only cell 2 (demand 5, infra 0) is a black spot.
	assert.Contains(t, out, "Flagged cells: 1")
	assert.Contains(t, out, "DEMAND")
	assert.NotContains(t, out, "Summary")
}

func TestWriteTable_Infrastructure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, loadResult(t), FormatTable))
	out := buf.String()

	assert.Contains(t, out, "Network Stress Index")
	assert.Contains(t, out, "DEPENDENTS")
	assert.NotContains(t, out, "Grid cells")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cellResult(t, coverage.CoverageVulnerability, 1, 1), FormatCSV))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, columns, rows[0])

	assert.Equal(t, []string{"1", "0", "77.0000", "11.0000", "14.00", "false", "10", "1", "", "0"}, rows[1])
	// Ranked order: 14, 7.5, 0, -1.
	assert.Equal(t, "2", rows[2][1])
	assert.Equal(t, "7.50", rows[2][4])
	assert.Equal(t, "1", rows[3][1])
	assert.Equal(t, "3", rows[4][1])
	assert.Equal(t, "-1.00", rows[4][4])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cellResult(t, coverage.CoverageVulnerability, 1, 1), FormatJSON))

	var got struct {
		RunID   string `json:"run_id"`
		Request struct {
			Index  string `json:"index"`
			Region string `json:"region"`
		} `json:"request"`
		Ranking struct {
			Direction string `json:"direction"`
			Records   []struct {
				Seq   int     `json:"seq"`
				Score float64 `json:"score"`
			} `json:"records"`
			TopK []struct {
				Seq int `json:"seq"`
			} `json:"top_k"`
		} `json:"ranking"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "coverage_vulnerability", got.Request.Index)
	assert.Equal(t, "Coimbatore", got.Request.Region)
	assert.Equal(t, "desc", got.Ranking.Direction)
	require.Len(t, got.Ranking.Records, 4)
	assert.Equal(t, 14.0, got.Ranking.Records[0].Score)
	require.Len(t, got.Ranking.TopK, 1)
	assert.Equal(t, 0, got.Ranking.TopK[0].Seq)
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cellResult(t, coverage.CoverageVulnerability, 1, 1), FormatGeoJSON))

	var fc geojson.FeatureCollection
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	require.Len(t, fc.Features, 4)

	first := fc.Features[0]
	assert.Equal(t, []float64{77.0, 11.0}, first.Geometry.FlatCoords())
	assert.Equal(t, float64(1), first.Properties["rank"])
	assert.Equal(t, 14.0, first.Properties["score"])
	assert.Equal(t, true, first.Properties["top"])
	assert.Equal(t, false, first.Properties["bottom"])
	assert.Equal(t, "coverage_vulnerability", first.Properties["index"])

	last := fc.Features[3]
	assert.Equal(t, true, last.Properties["bottom"])
	assert.Equal(t, "3", last.ID)
}

func TestWriteGeoJSON_Infrastructure(t *testing.T) {
	fc, err := FeatureCollection(loadResult(t))
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, 3, fc.Features[0].Properties["dependents"])
	assert.NotContains(t, fc.Features[0].Properties, "demand_count")
}

func TestWriteGeoJSON_NearestDistance(t *testing.T) {
	d := 2.5
	res := cellResult(t, coverage.CoverageVulnerability, 1, 1)
	res.Ranking.Records[0].Cell.NearestInfraKM = &d

	fc, err := FeatureCollection(res)
	require.NoError(t, err)
	assert.Equal(t, 2.5, fc.Features[0].Properties["nearest_infra_km"])
	assert.NotContains(t, fc.Features[1].Properties, "nearest_infra_km")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cellResult(t, coverage.CoverageVulnerability, 1, 2), FormatXLSX))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 4)
	assert.Equal(t, SheetSummary, f.Sheets[0].Name)

	ranking, ok := f.Sheet[SheetRanking]
	require.True(t, ok)
	require.Len(t, ranking.Rows, 5)
	assert.Equal(t, "rank", ranking.Rows[0].Cells[0].String())
	assert.Equal(t, "score", ranking.Rows[0].Cells[4].String())
	seq, err := ranking.Rows[2].Cells[1].Int()
	require.NoError(t, err)
	assert.Equal(t, 2, seq)

	bottom := f.Sheet[SheetBottom]
	require.Len(t, bottom.Rows, 3)
	rank, err := bottom.Rows[1].Cells[0].Int()
	require.NoError(t, err)
	assert.Equal(t, 3, rank)

	summary := f.Sheet[SheetSummary]
	assert.Equal(t, "index", summary.Rows[0].Cells[0].String())
	assert.Equal(t, "coverage_vulnerability", summary.Rows[0].Cells[1].String())
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cellResult(t, coverage.CoverageVulnerability, 1, 1), FormatHTML))
	out := buf.String()

	assert.True(t, strings.Contains(strings.ToLower(out), "<html"))
	assert.Contains(t, out, "Coverage Vulnerability Index: Coimbatore")
	assert.Contains(t, out, "echarts")
	assert.Contains(t, out, `"name":"top"`)
	assert.Contains(t, out, `"name":"bottom"`)
	assert.Contains(t, out, `"name":"demand"`)
}

func TestWriteHTML_DemandLayerOnlyForDemandIndices(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cellResult(t, coverage.RedundancyRisk, 1, 1), FormatHTML))
	assert.NotContains(t, buf.String(), `"name":"demand"`)

	buf.Reset()
	require.NoError(t, Write(&buf, loadResult(t), FormatHTML))
	assert.NotContains(t, buf.String(), `"name":"demand"`)
}

func TestDemandData(t *testing.T) {
	rows := rowsOf(cellResult(t, coverage.CoverageVulnerability, 1, 1).Ranking.Records, 1)
	data := demandData(rows)

	// The cell with no demand is left out; the densest gets the largest symbol.
	require.Len(t, data, 3)
	sizes := map[string]int{}
	for _, d := range data {
		sizes[d.Name] = d.SymbolSize
	}
	assert.Equal(t, map[string]int{"demand 10": 28, "demand 5": 16, "demand 2": 8}, sizes)

	assert.Empty(t, demandData(nil))
}

func TestWriteHTML_FlaggedHasNoBottomSeries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cellResult(t, coverage.BlackSpot, 5, 5), FormatHTML))
	assert.NotContains(t, buf.String(), `"name":"bottom"`)
}

func TestExtent(t *testing.T) {
	res := cellResult(t, coverage.CoverageVulnerability, 1, 1)
	b := extent(res.Ranking.Records)
	assert.Less(t, b.MinLon, 77.0)
	assert.Greater(t, b.MaxLon, 77.1)
	assert.Less(t, b.MinLat, 11.0)
	assert.Greater(t, b.MaxLat, 11.1)

	empty := extent(nil)
	assert.Equal(t, -180.0, empty.MinLon)
}
