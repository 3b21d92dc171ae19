// Package plan runs a batch of analyses described in a YAML file and writes
// one output file per entry.
package plan

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/coverage-cli/internal/config"
	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/render"
)

// DefaultConcurrency is used when a plan does not set concurrency.
const DefaultConcurrency = 2

// Plan is a parsed plan file.
//
//	output_dir: out
//	format: csv
//	concurrency: 2
//	defaults:
//	  region: Tamil Nadu
//	  radius_km: 5
//	analyses:
//	  - name: tn_vulnerability
//	    index: coverage_vulnerability
//	  - index: network_stress
//	    format: geojson
type Plan struct {
	OutputDir   string
	Format      render.Format
	Concurrency int
	Entries     []Entry
}

// Entry is one analysis of a plan. Analysis starts from the configured
// analysis section, then the plan defaults, then the entry's own keys.
type Entry struct {
	Name     string                `yaml:"name"`
	Format   string                `yaml:"format"`
	Analysis config.AnalysisConfig `yaml:",inline"`
}

// OutputFormat is the entry format or, when unset, the plan format.
func (e Entry) OutputFormat(p *Plan) (render.Format, error) {
	if e.Format == "" {
		return p.Format, nil
	}
	return render.ParseFormat(e.Format)
}

type planFile struct {
	OutputDir   string      `yaml:"output_dir"`
	Format      string      `yaml:"format"`
	Concurrency int         `yaml:"concurrency"`
	Defaults    yaml.Node   `yaml:"defaults"`
	Analyses    []yaml.Node `yaml:"analyses"`
}

// LoadFile reads a plan from path.
func LoadFile(path string, base config.AnalysisConfig) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "plan: read %s", path)
	}
	return Parse(data, base)
}

// Parse decodes a plan. Each entry's analysis settings are layered over base
// and the plan defaults; keys an entry omits keep the inherited value.
func Parse(data []byte, base config.AnalysisConfig) (*Plan, error) {
	var f planFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "plan: parse")
	}
	if len(f.Analyses) == 0 {
		return nil, eris.Wrap(coverage.ErrInvalidParameter, "plan: no analyses")
	}

	format, err := render.ParseFormat(f.Format)
	if err != nil {
		return nil, err
	}
	if f.Concurrency < 0 {
		return nil, eris.Wrapf(coverage.ErrInvalidParameter, "plan: concurrency must be >= 0 (got %d)", f.Concurrency)
	}
	p := &Plan{OutputDir: f.OutputDir, Format: format, Concurrency: f.Concurrency, Entries: make([]Entry, 0, len(f.Analyses))}
	if p.OutputDir == "" {
		p.OutputDir = "."
	}
	if p.Concurrency == 0 {
		p.Concurrency = DefaultConcurrency
	}

	defaults := cloneAnalysis(base)
	if !f.Defaults.IsZero() {
		if err := f.Defaults.Decode(&defaults); err != nil {
			return nil, eris.Wrap(err, "plan: decode defaults")
		}
	}

	seen := make(map[string]int, len(f.Analyses))
	for i := range f.Analyses {
		e := Entry{Analysis: cloneAnalysis(defaults)}
		if err := f.Analyses[i].Decode(&e); err != nil {
			return nil, eris.Wrapf(err, "plan: decode analysis %d", i+1)
		}
		if e.Name == "" {
			e.Name = defaultName(e.Analysis)
		}
		e.Name = slug(e.Name)
		if e.Name == "" {
			return nil, eris.Wrapf(coverage.ErrInvalidParameter, "plan: analysis %d has no usable name", i+1)
		}
		if prev, ok := seen[e.Name]; ok {
			return nil, eris.Wrapf(coverage.ErrInvalidParameter, "plan: analyses %d and %d share the name %q", prev, i+1, e.Name)
		}
		seen[e.Name] = i + 1
		if _, err := e.OutputFormat(p); err != nil {
			return nil, eris.Wrapf(err, "plan: analysis %q", e.Name)
		}
		p.Entries = append(p.Entries, e)
	}
	return p, nil
}

func cloneAnalysis(a config.AnalysisConfig) config.AnalysisConfig {
	if a.BBox != nil {
		a.BBox = append([]float64(nil), a.BBox...)
	}
	return a
}

func defaultName(a config.AnalysisConfig) string {
	area := a.Region
	if len(a.BBox) > 0 {
		area = "bbox"
	}
	if area == "" {
		return a.Index
	}
	return a.Index + "_" + area
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slug lower-cases name and collapses anything outside [a-z0-9] to "_", so
// it is safe as a file name.
func slug(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "_"), "_")
}
