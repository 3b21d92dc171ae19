// Package load imports point collections and region boundaries into a
// source's storage: PostGIS tables via COPY, or the SQLite database.
package load

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/db"
)

// SRID of every stored geometry.
const SRID = 4326

const defaultBatchSize = 50000

// PointOptions configures a PostGIS point load.
type PointOptions struct {
	// Replace truncates the collection table first.
	Replace bool
	// BatchSize is the COPY batch size; 0 means 50,000 rows.
	BatchSize int
}

// EncodePoints converts points to single-column EWKB rows for COPY, in input
// order so that BIGSERIAL ids follow file order.
func EncodePoints(points []coverage.GeoPoint) ([][]any, error) {
	rows := make([][]any, len(points))
	for i, p := range points {
		g := geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(SRID)
		data, err := ewkb.Marshal(g, ewkb.NDR)
		if err != nil {
			return nil, eris.Wrapf(err, "load: encode point %d", i)
		}
		rows[i] = []any{data}
	}
	return rows, nil
}

// PostgresPoints writes points into schema.collection, creating the table if
// needed, and returns the number of rows copied.
func PostgresPoints(ctx context.Context, pool db.Pool, schema, collection string, points []coverage.GeoPoint, opts PointOptions) (int64, error) {
	if err := db.EnsurePointTable(ctx, pool, schema, collection); err != nil {
		return 0, err
	}
	if opts.Replace {
		if err := db.TruncateTable(ctx, pool, schema, collection); err != nil {
			return 0, err
		}
	}

	rows, err := EncodePoints(points)
	if err != nil {
		return 0, err
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	log := zap.L().With(
		zap.String("component", "load"),
		zap.String("table", schema+"."+collection),
		zap.Int("total_rows", len(rows)),
	)

	var total int64
	for i := 0; i < len(rows); i += batchSize {
		end := min(i+batchSize, len(rows))
		n, err := db.CopyFromSchema(ctx, pool, schema, collection, []string{"geom"}, rows[i:end])
		if err != nil {
			return total, eris.Wrapf(err, "load: batch %d-%d", i, end)
		}
		total += n
		log.Debug("load: batch copied", zap.Int("batch_start", i), zap.Int("batch_end", end), zap.Int64("rows", n))
	}
	return total, nil
}

// PostgresRegion upserts a region boundary into the regions table, given as
// "schema.table" or a bare table in the public schema.
func PostgresRegion(ctx context.Context, pool db.Pool, regionsTable, name string, mp *geom.MultiPolygon) error {
	schema, table, err := db.SplitTable(regionsTable, "public")
	if err != nil {
		return err
	}
	if mp == nil || mp.NumPolygons() == 0 {
		return eris.Wrapf(coverage.ErrInvalidParameter, "load: region %q has no polygons", name)
	}
	if err := db.EnsureRegionTable(ctx, pool, schema, table); err != nil {
		return err
	}
	data, err := wkb.Marshal(mp, wkb.NDR)
	if err != nil {
		return eris.Wrapf(err, "load: encode region %q", name)
	}
	return db.UpsertRegion(ctx, pool, schema, table, name, data)
}

// SQLiteStore is the writable side of the SQLite source.
type SQLiteStore interface {
	PutPoints(ctx context.Context, collection string, points []coverage.GeoPoint) (int64, error)
	PutRegion(ctx context.Context, name string, g geom.T) error
}

// SQLitePoints replaces a collection in the SQLite database.
func SQLitePoints(ctx context.Context, store SQLiteStore, collection string, points []coverage.GeoPoint) (int64, error) {
	if collection == "" {
		return 0, eris.Wrap(coverage.ErrInvalidParameter, "load: collection name is required")
	}
	return store.PutPoints(ctx, collection, points)
}

// SQLiteRegion stores a region boundary in the SQLite database.
func SQLiteRegion(ctx context.Context, store SQLiteStore, name string, mp *geom.MultiPolygon) error {
	if mp == nil || mp.NumPolygons() == 0 {
		return eris.Wrapf(coverage.ErrInvalidParameter, "load: region %q has no polygons", name)
	}
	return store.PutRegion(ctx, name, mp)
}
