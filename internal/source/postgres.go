package source

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/db"
)

// undefinedTable is the PostgreSQL error code for a missing relation.
const undefinedTable = "42P01"

// Postgres reads boundaries and points from PostGIS tables.
type Postgres struct {
	pool          db.Pool
	regionsSchema string
	regionsTable  string
	pointsSchema  string
	closeFn       func()
}

// NewPostgres wraps pool. regionsTable may be schema-qualified; it must have
// name and geom columns. Point collections are tables in pointsSchema with
// id and geom columns.
func NewPostgres(pool db.Pool, regionsTable, pointsSchema string) (*Postgres, error) {
	if pointsSchema == "" {
		pointsSchema = "public"
	}
	if !db.ValidIdentifier(pointsSchema) {
		return nil, eris.Wrapf(coverage.ErrInvalidParameter, "source: invalid points schema %q", pointsSchema)
	}
	schema, table, err := db.SplitTable(regionsTable, "public")
	if err != nil {
		return nil, eris.Wrap(coverage.ErrInvalidParameter, err.Error())
	}
	return &Postgres{pool: pool, regionsSchema: schema, regionsTable: table, pointsSchema: pointsSchema}, nil
}

// Boundary loads a region polygon by name.
func (p *Postgres) Boundary(ctx context.Context, region string) (coverage.Boundary, error) {
	query := `SELECT ST_AsBinary(ST_Multi(geom)) FROM ` +
		pgx.Identifier{p.regionsSchema, p.regionsTable}.Sanitize() + ` WHERE name = $1`

	var data []byte
	err := p.pool.QueryRow(ctx, query, region).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("region", region)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "source: query region %q", region)
	}

	g, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrapf(err, "source: decode region %q", region)
	}
	b, err := coverage.NewBoundary(g)
	if err != nil {
		return nil, eris.Wrapf(err, "source: region %q", region)
	}
	return b, nil
}

// Points loads a collection table ordered by id.
func (p *Postgres) Points(ctx context.Context, collection string) ([]coverage.GeoPoint, error) {
	if !db.ValidIdentifier(collection) {
		return nil, eris.Wrapf(coverage.ErrInvalidParameter, "source: invalid collection name %q", collection)
	}
	query := `SELECT ST_X(geom), ST_Y(geom) FROM ` +
		pgx.Identifier{p.pointsSchema, collection}.Sanitize() + ` ORDER BY id`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, notFound("collection", collection)
		}
		return nil, eris.Wrapf(err, "source: query collection %q", collection)
	}
	defer rows.Close()

	var points []coverage.GeoPoint
	for rows.Next() {
		var pt coverage.GeoPoint
		if err := rows.Scan(&pt.Lon, &pt.Lat); err != nil {
			return nil, eris.Wrapf(err, "source: scan collection %q", collection)
		}
		points = append(points, pt)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, notFound("collection", collection)
		}
		return nil, eris.Wrapf(err, "source: iterate collection %q", collection)
	}

	zap.L().Debug("source: loaded collection",
		zap.String("driver", "postgres"),
		zap.String("collection", collection),
		zap.Int("points", len(points)),
	)
	return points, nil
}

// Close releases the pool when this source owns it.
func (p *Postgres) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
