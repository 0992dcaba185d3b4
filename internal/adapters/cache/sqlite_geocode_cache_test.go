package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-scheduling-service/internal/adapters/repositories"
	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/platform/db"
)

func TestSqliteGeocodeCacheRoundTrip(t *testing.T) {
	conn, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer conn.Close()
	ctx := context.Background()
	require.NoError(t, repositories.InitSchema(ctx, conn, repositories.SQLite))

	c := NewSqliteGeocodeCache(conn)

	empty, err := c.GetMany(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, c.PutMany(ctx, map[string]domain.Coordinates{
		"a": {Lon: 1, Lat: 2},
		"b": {Lon: 3, Lat: 4},
	}))
	require.NoError(t, c.PutMany(ctx, map[string]domain.Coordinates{"a": {Lon: 5, Lat: 6}}))

	got, err := c.GetMany(ctx, []string{"a", " b ", "a", "", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Coordinates{
		"a": {Lon: 5, Lat: 6},
		"b": {Lon: 3, Lat: 4},
	}, got)

	assert.Error(t, c.PutMany(ctx, map[string]domain.Coordinates{" ": {}}))
}

func TestUniqueKeys(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, uniqueKeys([]string{" x", "y", "x ", ""}))
}
