package source

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	_ "modernc.org/sqlite"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

// SQLite reads regions(name, geojson) and points(collection, seq, lon, lat)
// tables from a modernc.org/sqlite database.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS regions (
	name    TEXT PRIMARY KEY,
	geojson TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS points (
	collection TEXT    NOT NULL,
	seq        INTEGER NOT NULL,
	lon        REAL    NOT NULL,
	lat        REAL    NOT NULL,
	PRIMARY KEY (collection, seq)
);
`

// NewSQLite opens the database at dsn and creates the tables if missing.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLite{db: db}, nil
}

// Boundary decodes the region's GeoJSON polygon.
func (s *SQLite) Boundary(ctx context.Context, region string) (coverage.Boundary, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT geojson FROM regions WHERE name = ?`, region).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("region", region)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query region %q", region)
	}
	b, err := ReadBoundaryGeoJSON([]byte(doc))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: region %q", region)
	}
	return b, nil
}

// Points returns the collection ordered by seq. A collection with no rows is
// reported as not found.
func (s *SQLite) Points(ctx context.Context, collection string) ([]coverage.GeoPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lon, lat FROM points WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query collection %q", collection)
	}
	defer rows.Close() //nolint:errcheck

	var points []coverage.GeoPoint
	for rows.Next() {
		var p coverage.GeoPoint
		if err := rows.Scan(&p.Lon, &p.Lat); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan collection %q", collection)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: iterate collection %q", collection)
	}
	if len(points) == 0 {
		return nil, notFound("collection", collection)
	}
	return points, nil
}

// PutRegion stores or replaces a region geometry.
func (s *SQLite) PutRegion(ctx context.Context, name string, g geom.T) error {
	data, err := geojson.Marshal(g)
	if err != nil {
		return eris.Wrapf(err, "sqlite: encode region %q", name)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO regions (name, geojson) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET geojson = excluded.geojson`, name, string(data))
	return eris.Wrapf(err, "sqlite: put region %q", name)
}

// PutPoints replaces a collection in one transaction. seq follows slice order.
func (s *SQLite) PutPoints(ctx context.Context, collection string, points []coverage.GeoPoint) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE collection = ?`, collection); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear collection %q", collection)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO points (collection, seq, lon, lat) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, p := range points {
		if _, err := stmt.ExecContext(ctx, collection, i, p.Lon, p.Lat); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert %s[%d]", collection, i)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return int64(len(points)), nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
