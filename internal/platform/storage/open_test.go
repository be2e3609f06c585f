package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-route-service/internal/adapters/kv"
	"cafe-route-service/internal/config"
	"cafe-route-service/internal/platform/logging"
)

func roundTrip(t *testing.T, b *Backend) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, b.Store.Set(ctx, "currentPlan", []byte(`{}`)))
	v, ok, err := b.Store.Get(ctx, "currentPlan")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{}`, string(v))
}

func TestOpen_Memory(t *testing.T) {
	b, err := Open(context.Background(), config.Storage{Driver: "memory"}, logging.Discard())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &kv.MemoryStore{}, b.Store)
	assert.Nil(t, b.DB)
	roundTrip(t, b)
}

func TestOpen_Sqlite(t *testing.T) {
	cfg := config.Storage{Driver: "sqlite", SqlitePath: filepath.Join(t.TempDir(), "db", "cafehop.db")}

	b, err := Open(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer b.Close()

	require.NotNil(t, b.DB)
	roundTrip(t, b)

	// The catalog table is created alongside the KV table.
	var n int
	require.NoError(t, b.DB.QueryRow(`SELECT COUNT(*) FROM cafes`).Scan(&n))
	assert.Zero(t, n)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	b, err := Open(context.Background(), config.Storage{Driver: "redis", RedisAddr: mr.Addr(), KeyPrefix: "p:"}, logging.Discard())
	require.NoError(t, err)
	defer b.Close()

	roundTrip(t, b)
	assert.True(t, mr.Exists("p:currentPlan"))
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), config.Storage{Driver: "floppy"}, logging.Discard())
	assert.Error(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = Open(context.Background(), config.Storage{Driver: "redis", RedisAddr: addr}, logging.Discard())
	assert.Error(t, err)
}
