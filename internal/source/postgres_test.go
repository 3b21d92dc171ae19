package source

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

func squareWKB(t *testing.T) []byte {
	t.Helper()
	poly := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0}, []int{10})
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(poly))
	data, err := wkb.Marshal(mp, wkb.NDR)
	require.NoError(t, err)
	return data
}

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	src, err := NewPostgres(mock, "geo.regions", "geo")
	require.NoError(t, err)
	return src, mock
}

func TestPostgres_Boundary(t *testing.T) {
	src, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ST_AsBinary(ST_Multi(geom)) FROM "geo"."regions" WHERE name = $1`)).
		WithArgs("Tamil Nadu").
		WillReturnRows(pgxmock.NewRows([]string{"st_asbinary"}).AddRow(squareWKB(t)))

	b, err := src.Boundary(context.Background(), "Tamil Nadu")
	require.NoError(t, err)
	assert.True(t, b.Contains(coverage.GeoPoint{Lon: 5, Lat: 5}))
	assert.Equal(t, coverage.BBox{MaxLon: 10, MaxLat: 10}, b.Bounds())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BoundaryNotFound(t *testing.T) {
	src, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT ST_AsBinary`).
		WithArgs("Atlantis").
		WillReturnRows(pgxmock.NewRows([]string{"st_asbinary"}))

	_, err := src.Boundary(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, coverage.ErrNotFound)
	assert.Contains(t, err.Error(), "Atlantis")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BoundaryQueryError(t *testing.T) {
	src, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT ST_AsBinary`).
		WithArgs("Tamil Nadu").
		WillReturnError(errors.New("connection reset"))

	_, err := src.Boundary(context.Background(), "Tamil Nadu")
	require.Error(t, err)
	assert.False(t, errors.Is(err, coverage.ErrNotFound))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgres_Points(t *testing.T) {
	src, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ST_X(geom), ST_Y(geom) FROM "geo"."towers" ORDER BY id`)).
		WillReturnRows(pgxmock.NewRows([]string{"st_x", "st_y"}).
			AddRow(77.0, 11.0).
			AddRow(77.5, 11.5))

	points, err := src.Points(context.Background(), "towers")
	require.NoError(t, err)
	assert.Equal(t, []coverage.GeoPoint{{Lon: 77.0, Lat: 11.0}, {Lon: 77.5, Lat: 11.5}}, points)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PointsMissingTable(t *testing.T) {
	src, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT ST_X`).
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "geo.antennas" does not exist`})

	_, err := src.Points(context.Background(), "antennas")
	assert.ErrorIs(t, err, coverage.ErrNotFound)
}

func TestPostgres_RejectsUnsafeNames(t *testing.T) {
	src, _ := newMockPostgres(t)

	_, err := src.Points(context.Background(), `towers"; DROP TABLE x; --`)
	assert.ErrorIs(t, err, coverage.ErrInvalidParameter)

	_, err = NewPostgres(nil, "geo.regions;", "geo")
	assert.ErrorIs(t, err, coverage.ErrInvalidParameter)

	_, err = NewPostgres(nil, "geo.regions", "bad schema")
	assert.ErrorIs(t, err, coverage.ErrInvalidParameter)
}
