package repositories

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-route-service/internal/domain"
	"cafe-route-service/internal/platform/db"
)

const testSeed = `[
	{"id": "b", "name": "Bravo", "rating": 4.2, "photos": ["b1.jpg", "b2.jpg"], "coordinates": {"lat": 1.2900, "lng": 103.8500}},
	{"id": "a", "name": "Alpha", "address": "1 Bay Rd", "priceRange": "$$", "cuisine": "Brunch", "coordinates": {"lat": 1.2839, "lng": 103.8608}},
	{"id": "far", "name": "Far Away", "coordinates": {"lat": 1.4500, "lng": 103.8200}},
	{"id": "nowhere", "name": "Nowhere"}
]`

func seededDB(t *testing.T, seed string) *sql.DB {
	t.Helper()
	dir := t.TempDir()

	conn, err := db.OpenSqlite(filepath.Join(dir, "cafes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	require.NoError(t, InitSchema(ctx, conn))
	// Schema creation is repeatable.
	require.NoError(t, InitSchema(ctx, conn))

	seedPath := filepath.Join(dir, "cafes.json")
	require.NoError(t, os.WriteFile(seedPath, []byte(seed), 0o644))

	n, err := SeedCafesFromJSON(ctx, conn, SQLite, seedPath)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	return conn
}

func TestSQLCafeRepository_ListKeepsSeedOrder(t *testing.T) {
	repo := NewSqliteCafeRepository(seededDB(t, testSeed))

	cafes, err := repo.ListCafes(context.Background())
	require.NoError(t, err)
	require.Len(t, cafes, 4)

	got := make([]domain.StopID, len(cafes))
	for i, c := range cafes {
		got[i] = c.ID
	}
	assert.Equal(t, []domain.StopID{"b", "a", "far", "nowhere"}, got)

	assert.Equal(t, []string{"b1.jpg", "b2.jpg"}, cafes[0].Photos)
	assert.Nil(t, cafes[1].Photos)
	assert.Nil(t, cafes[3].Coordinates)
}

func TestSQLCafeRepository_Get(t *testing.T) {
	ctx := context.Background()
	repo := NewSqliteCafeRepository(seededDB(t, testSeed))

	a, err := repo.GetCafe(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", a.Name)
	assert.Equal(t, "1 Bay Rd", a.Address)
	assert.Equal(t, "$$", a.PriceRange)
	require.NotNil(t, a.Coordinates)
	assert.Equal(t, 1.2839, a.Coordinates.Lat)

	_, err = repo.GetCafe(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLCafeRepository_Nearby(t *testing.T) {
	ctx := context.Background()
	repo := NewSqliteCafeRepository(seededDB(t, testSeed))
	center := domain.Coordinates{Lat: 1.2839, Lng: 103.8608}

	got, err := repo.NearbyCafes(ctx, center, 0, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.StopID("a"), got[0].ID)
	assert.Equal(t, domain.StopID("b"), got[1].ID)

	got, err = repo.NearbyCafes(ctx, center, 1, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Large radii skip the bounding box and still rank everything located.
	got, err = repo.NearbyCafes(ctx, center, 0, 25000)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = repo.NearbyCafes(ctx, domain.Coordinates{Lat: -100}, 0, 3)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSeedCafesFromJSON_UpsertsAndRejectsBadRecords(t *testing.T) {
	ctx := context.Background()
	conn := seededDB(t, testSeed)
	dir := t.TempDir()

	updated := filepath.Join(dir, "updated.json")
	require.NoError(t, os.WriteFile(updated, []byte(`[{"id": "a", "name": "Alpha Renamed", "coordinates": {"lat": 1.2839, "lng": 103.8608}}]`), 0o644))
	_, err := SeedCafesFromJSON(ctx, conn, SQLite, updated)
	require.NoError(t, err)

	a, err := NewSqliteCafeRepository(conn).GetCafe(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Renamed", a.Name)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"id": "x", "coordinates": {"lat": 95, "lng": 0}}]`), 0o644))
	_, err = SeedCafesFromJSON(ctx, conn, SQLite, bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = SeedCafesFromJSON(ctx, conn, SQLite, filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestDialectPlaceholders(t *testing.T) {
	assert.Equal(t, "?, ?, ?", SQLite.placeholders(3))
	assert.Equal(t, "$1, $2, $3", Postgres.placeholders(3))
}

func TestInitSchema_NilDB(t *testing.T) {
	assert.Error(t, InitSchema(context.Background(), nil))
}

func TestSQLCafeRepository_Search(t *testing.T) {
	ctx := context.Background()
	repo := NewSqliteCafeRepository(seededDB(t, testSeed))

	search := func(q domain.CafeQuery) []domain.StopID {
		t.Helper()
		cafes, err := repo.SearchCafes(ctx, q)
		require.NoError(t, err)
		out := make([]domain.StopID, len(cafes))
		for i, c := range cafes {
			out[i] = c.ID
		}
		return out
	}

	assert.Equal(t, []domain.StopID{"b", "a", "far", "nowhere"}, search(domain.CafeQuery{}))
	assert.Equal(t, []domain.StopID{"a"}, search(domain.CafeQuery{Text: "bay"}))
	assert.Equal(t, []domain.StopID{"far"}, search(domain.CafeQuery{Text: "AWAY"}))
	assert.Equal(t, []domain.StopID{"a"}, search(domain.CafeQuery{Cuisine: "brunch"}))
	assert.Equal(t, []domain.StopID{"a"}, search(domain.CafeQuery{Text: "alpha", PriceRange: "$$"}))
	assert.Empty(t, search(domain.CafeQuery{PriceRange: "$"}))
	assert.Empty(t, search(domain.CafeQuery{Text: "nowhere", Cuisine: "brunch"}))
}
