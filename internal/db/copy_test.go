package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFromSchema_EmptyRows(t *testing.T) {
	n, err := CopyFromSchema(context.TODO(), nil, "geo", "towers", []string{"geom"}, [][]any{})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFromSchema_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"geo", "towers"}, []string{"geom"}).WillReturnResult(3)

	rows := [][]any{{[]byte{1}}, {[]byte{2}}, {[]byte{3}}}
	n, err := CopyFromSchema(context.Background(), mock, "geo", "towers", []string{"geom"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFromSchema_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"geo", "towers"}, []string{"geom"}).WillReturnError(fmt.Errorf("permission denied"))

	_, err = CopyFromSchema(context.Background(), mock, "geo", "towers", []string{"geom"}, [][]any{{[]byte{1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO geo.towers")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSplitTable(t *testing.T) {
	schema, table, err := SplitTable("geo.regions", "public")
	require.NoError(t, err)
	assert.Equal(t, "geo", schema)
	assert.Equal(t, "regions", table)

	schema, table, err = SplitTable("towers", "geo")
	require.NoError(t, err)
	assert.Equal(t, "geo", schema)
	assert.Equal(t, "towers", table)

	for _, bad := range []string{"", "geo.", "geo.to wers", "x;drop table y", "1abc"} {
		_, _, err := SplitTable(bad, "geo")
		assert.Error(t, err, bad)
	}
}

func TestEnsurePointTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "geo"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "geo"."towers"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS "idx_towers_geom"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, EnsurePointTable(context.Background(), mock, "geo", "towers"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsurePointTable_RejectsBadNames(t *testing.T) {
	err := EnsurePointTable(context.Background(), nil, "geo", "towers; drop")
	assert.Error(t, err)
}

func TestTruncateTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`TRUNCATE "geo"."towers"`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	require.NoError(t, TruncateTable(context.Background(), mock, "geo", "towers"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureRegionTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "geo"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "geo"."regions"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS "idx_regions_geom"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, EnsureRegionTable(context.Background(), mock, "geo", "regions"))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, EnsureRegionTable(context.Background(), mock, "geo", "bad name"))
}

func TestUpsertRegion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	wkb := []byte{1, 6, 0, 0, 0}
	mock.ExpectExec(`INSERT INTO "geo"."regions"`).
		WithArgs("Tamil Nadu", wkb).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, UpsertRegion(context.Background(), mock, "geo", "regions", "Tamil Nadu", wkb))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRegion_Errors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	assert.Error(t, UpsertRegion(context.Background(), mock, "geo", "regions", "", nil))
	assert.Error(t, UpsertRegion(context.Background(), mock, "geo", "re;gions", "x", nil))

	mock.ExpectExec(`INSERT INTO "geo"."regions"`).
		WithArgs("Kerala", []byte{1}).
		WillReturnError(fmt.Errorf("geometry invalid"))
	err = UpsertRegion(context.Background(), mock, "geo", "regions", "Kerala", []byte{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Kerala")
	assert.NoError(t, mock.ExpectationsWereMet())
}
