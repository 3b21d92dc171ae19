package db

import (
	"context"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s is a plain SQL identifier.
func ValidIdentifier(s string) bool {
	return identRe.MatchString(s)
}

// SplitTable splits "schema.table" into its parts, validating both. A bare
// table name gets defaultSchema.
func SplitTable(name, defaultSchema string) (schema, table string, err error) {
	schema, table = defaultSchema, name
	if s, t, ok := strings.Cut(name, "."); ok {
		schema, table = s, t
	}
	if !ValidIdentifier(schema) || !ValidIdentifier(table) {
		return "", "", eris.Errorf("db: invalid table name %q", name)
	}
	return schema, table, nil
}

// CopyFromSchema bulk-inserts rows into a schema-qualified table using the
// PostgreSQL COPY protocol.
func CopyFromSchema(ctx context.Context, pool Pool, schema, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, pgx.Identifier{schema, table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s.%s", schema, table)
	}
	return n, nil
}

// EnsurePointTable creates a point collection table with a GiST index if it
// does not exist.
func EnsurePointTable(ctx context.Context, pool Pool, schema, table string) error {
	if !ValidIdentifier(schema) || !ValidIdentifier(table) {
		return eris.Errorf("db: invalid table name %s.%s", schema, table)
	}
	qualified := pgx.Identifier{schema, table}.Sanitize()

	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + pgx.Identifier{schema}.Sanitize(),
		`CREATE TABLE IF NOT EXISTS ` + qualified + ` (
			id   BIGSERIAL PRIMARY KEY,
			geom geometry(Point, 4326) NOT NULL
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

// TruncateTable empties a table before a replacing load.
func TruncateTable(ctx context.Context, pool Pool, schema, table string) error {
	if !ValidIdentifier(schema) || !ValidIdentifier(table) {
		return eris.Errorf("db: invalid table name %s.%s", schema, table)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE `+pgx.Identifier{schema, table}.Sanitize()); err != nil {
		return eris.Wrapf(err, "db: truncate %s.%s", schema, table)
	}
	return nil
}
