package clientdata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/horizon/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := database.Schema("cache")
	require.NoError(t, err)
	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

// clock is a settable time source
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setupTestStore(t *testing.T) (*Store, *clock) {
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(setupTestDB(t))
	s.now = c.now
	return s, c
}

func TestStore_SetGet(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v1"), time.Hour))

	data, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), data)

	// replace
	require.NoError(t, store.Set(ctx, "k", []byte("v2"), time.Hour))
	data, _, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Expiry(t *testing.T) {
	store, c := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("a"), time.Minute))
	require.NoError(t, store.Set(ctx, "long", []byte("b"), time.Hour))

	c.t = c.t.Add(2 * time.Minute)

	_, ok, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must not be served fresh")

	stale, ok, err := store.GetStale(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), stale)

	deleted, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err = store.GetStale(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Delete(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	s := NewRedisStoreFromClient(nil, "")
	assert.Equal(t, "horizon:prices:AAA", s.wrapKey("prices:AAA"))

	s = NewRedisStoreFromClient(nil, "test")
	assert.Equal(t, "test:k", s.wrapKey("k"))
}
