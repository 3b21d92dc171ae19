// Package render writes analysis results in the supported output formats.
package render

import (
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/coverage"
)

// Format is an output encoding.
type Format string

const (
	FormatTable   Format = "table"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatGeoJSON Format = "geojson"
	FormatXLSX    Format = "xlsx"
	FormatHTML    Format = "html"
)

var formats = []Format{FormatTable, FormatCSV, FormatJSON, FormatGeoJSON, FormatXLSX, FormatHTML}

// Formats lists every supported format.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// ParseFormat resolves a format name. The empty string selects the table.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return FormatTable, nil
	case "txt", "text":
		return FormatTable, nil
	case "xls", "excel":
		return FormatXLSX, nil
	}
	for _, f := range formats {
		if Format(name) == f {
			return f, nil
		}
	}
	return "", eris.Wrapf(coverage.ErrInvalidParameter, "render: unknown format %q", s)
}

// FormatForPath infers a format from an output file extension. ok is false
// when the extension is not recognized.
func FormatForPath(path string) (Format, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "":
		return "", false
	case "json":
		return FormatJSON, true
	case "htm":
		return FormatHTML, true
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return "", false
	}
	return f, true
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == FormatTable {
		return ".txt"
	}
	return "." + string(f)
}

// Binary reports whether f should not be written to a terminal.
func (f Format) Binary() bool {
	return f == FormatXLSX
}

// Write encodes res to w in format f.
func Write(w io.Writer, res *analysis.Result, f Format) error {
	if res == nil || res.Ranking == nil {
		return eris.New("render: result has no ranking")
	}
	switch f {
	case FormatTable:
		return writeTable(w, res)
	case FormatCSV:
		return writeCSV(w, res)
	case FormatJSON:
		return writeJSON(w, res)
	case FormatGeoJSON:
		return writeGeoJSON(w, res)
	case FormatXLSX:
		return writeXLSX(w, res)
	case FormatHTML:
		return writeHTML(w, res)
	default:
		return eris.Wrapf(coverage.ErrInvalidParameter, "render: unknown format %q", string(f))
	}
}

var titleCaser = cases.Title(language.English)

// Title returns the display title of an index, e.g. "Coverage Vulnerability".
func Title(k coverage.Kind) string {
	if !k.Valid() {
		return k.String()
	}
	return titleCaser.String(k.Definition().Title)
}

// heading is the one-line description used by the table, the HTML page and
// the XLSX summary sheet.
func heading(res *analysis.Result) string {
	area := res.Request.Area()
	if area == "" {
		return Title(res.Request.Index) + " Index"
	}
	return Title(res.Request.Index) + " Index: " + area
}

// Score formats a score with two decimals.
func Score(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// row is the flattened view of one ranked record shared by the tabular
// formats.
type row struct {
	Rank       int
	Seq        int
	Lon        float64
	Lat        float64
	Score      float64
	Flag       bool
	Demand     int
	Infra      int
	NearestKM  *float64
	Dependents int
}

func rowsOf(records []coverage.ScoredRecord, firstRank int) []row {
	out := make([]row, len(records))
	for i, r := range records {
		loc := r.Location()
		out[i] = row{Rank: firstRank + i, Seq: r.Seq, Lon: loc.Lon, Lat: loc.Lat, Score: r.Score, Flag: r.Flag}
		if r.Cell != nil {
			out[i].Demand = r.Cell.DemandCount
			out[i].Infra = r.Cell.InfraCount
			out[i].NearestKM = r.Cell.NearestInfraKM
		}
		if r.Load != nil {
			out[i].Dependents = r.Load.Dependents
		}
	}
	return out
}

// bottomRows numbers the bottom slice by its position in the full ranking.
func bottomRows(rk *coverage.Ranking) []row {
	return rowsOf(rk.BottomK, len(rk.Records)-len(rk.BottomK)+1)
}

var columns = []string{"rank", "seq", "lon", "lat", "score", "flag", "demand_count", "infra_count", "nearest_infra_km", "dependents"}

func (r row) strings() []string {
	nearest := ""
	if r.NearestKM != nil {
		nearest = strconv.FormatFloat(*r.NearestKM, 'f', 3, 64)
	}
	return []string{
		strconv.Itoa(r.Rank),
		strconv.Itoa(r.Seq),
		coord(r.Lon),
		coord(r.Lat),
		Score(r.Score),
		strconv.FormatBool(r.Flag),
		strconv.Itoa(r.Demand),
		strconv.Itoa(r.Infra),
		nearest,
		strconv.Itoa(r.Dependents),
	}
}
