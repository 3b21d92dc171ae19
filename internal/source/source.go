// Package source loads region boundaries and point collections for an
// analysis from PostGIS, SQLite, or a directory of geometry files.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-cli/internal/config"
	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/db"
)

// Source provides the read-only inputs of an analysis run.
type Source interface {
	// Boundary returns the named region. Missing regions wrap
	// coverage.ErrNotFound.
	Boundary(ctx context.Context, region string) (coverage.Boundary, error)
	// Points returns a collection in its stable storage order. Missing
	// collections wrap coverage.ErrNotFound.
	Points(ctx context.Context, collection string) ([]coverage.GeoPoint, error)
	Close() error
}

// Open builds the Source selected by cfg.Driver.
func Open(ctx context.Context, cfg config.SourceConfig) (Source, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
		if err != nil {
			return nil, err
		}
		src, err := NewPostgres(pool, cfg.RegionsTable, cfg.PointsSchema)
		if err != nil {
			pool.Close()
			return nil, err
		}
		src.closeFn = pool.Close
		return src, nil
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	case "file":
		return NewDir(cfg.Dir)
	default:
		return nil, eris.Wrapf(coverage.ErrInvalidParameter, "source: unknown driver %q", cfg.Driver)
	}
}

func notFound(kind, name string) error {
	return eris.Wrapf(coverage.ErrNotFound, "source: %s %q", kind, name)
}
