package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// EnsureRegionTable creates the regions table (name, geom) with a GiST index
// if it does not exist.
func EnsureRegionTable(ctx context.Context, pool Pool, schema, table string) error {
	if !ValidIdentifier(schema) || !ValidIdentifier(table) {
		return eris.Errorf("db: invalid table name %s.%s", schema, table)
	}
	qualified := pgx.Identifier{schema, table}.Sanitize()

	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + pgx.Identifier{schema}.Sanitize(),
		`CREATE TABLE IF NOT EXISTS ` + qualified + ` (
			name TEXT PRIMARY KEY,
			geom geometry(MultiPolygon, 4326) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ` + pgx.Identifier{"idx_" + table + "_geom"}.Sanitize() +
			` ON ` + qualified + ` USING gist (geom)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "db: prepare %s.%s", schema, table)
		}
	}
	return nil
}

// UpsertRegion stores a region from WKB, replacing any previous geometry
// under the same name.
func UpsertRegion(ctx context.Context, pool Pool, schema, table, name string, wkb []byte) error {
	if !ValidIdentifier(schema) || !ValidIdentifier(table) {
		return eris.Errorf("db: invalid table name %s.%s", schema, table)
	}
	if name == "" {
		return eris.New("db: region name is required")
	}
	sql := `INSERT INTO ` + pgx.Identifier{schema, table}.Sanitize() + ` (name, geom)
		VALUES ($1, ST_Multi(ST_SetSRID(ST_GeomFromWKB($2), 4326)))
		ON CONFLICT (name) DO UPDATE SET geom = EXCLUDED.geom`
	if _, err := pool.Exec(ctx, sql, name, wkb); err != nil {
		return eris.Wrapf(err, "db: upsert region %q", name)
	}
	return nil
}
