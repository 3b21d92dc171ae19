package plan

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/render"
)

// Analyzer runs one analysis request.
type Analyzer interface {
	Run(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Outcome reports one entry of a plan run.
type Outcome struct {
	Name    string
	Path    string
	Records int
	Elapsed time.Duration
	Err     error
}

// Execute runs every entry with at most p.Concurrency analyses in flight and
// writes each result to OutputDir/<name><ext>. A failing entry does not stop
// the others; the returned error wraps the first failure in plan order.
// Outcomes are returned in plan order.
func Execute(ctx context.Context, p *Plan, a Analyzer) ([]Outcome, error) {
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "plan: create output dir %s", p.OutputDir)
	}

	log := zap.L().With(zap.String("component", "plan"), zap.Int("analyses", len(p.Entries)))
	log.Info("plan: starting", zap.Int("concurrency", p.Concurrency), zap.String("output_dir", p.OutputDir))
	start := time.Now()

	outcomes := make([]Outcome, len(p.Entries))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)
	for i, e := range p.Entries {
		g.Go(func() error {
			out := runEntry(gctx, p, e, a)
			outcomes[i] = out
			if out.Err != nil {
				log.Error("plan: analysis failed", zap.String("name", e.Name), zap.Error(out.Err))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			log.Info("plan: analysis written",
				zap.String("name", e.Name),
				zap.String("path", out.Path),
				zap.Int("records", out.Records),
				zap.Duration("elapsed", out.Elapsed),
			)
			return nil
		})
	}
	_ = g.Wait()

	log.Info("plan: complete",
		zap.Int("succeeded", len(p.Entries)-failed),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
	)

	for _, o := range outcomes {
		if o.Err != nil {
			return outcomes, eris.Wrapf(o.Err, "plan: %d of %d analyses failed, first %q", failed, len(p.Entries), o.Name)
		}
	}
	return outcomes, nil
}

func runEntry(ctx context.Context, p *Plan, e Entry, a Analyzer) Outcome {
	start := time.Now()
	out := Outcome{Name: e.Name}

	format, err := e.OutputFormat(p)
	if err != nil {
		out.Err = err
		return out
	}
	req, err := analysis.RequestFromConfig(e.Analysis)
	if err != nil {
		out.Err = err
		return out
	}
	res, err := a.Run(ctx, req)
	if err != nil {
		out.Err = err
		return out
	}

	out.Path = filepath.Join(p.OutputDir, e.Name+format.Ext())
	out.Records = len(res.Ranking.Records)
	out.Err = writeFile(out.Path, res, format)
	out.Elapsed = time.Since(start)
	return out
}

func writeFile(path string, res *analysis.Result, format render.Format) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "plan: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "plan: close %s", path)
		}
	}()
	return render.Write(f, res, format)
}
