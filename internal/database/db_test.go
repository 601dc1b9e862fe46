package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *DB, table string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrate_PortfolioSchema(t *testing.T) {
	db := openTestDB(t, "portfolio", ProfileLedger)

	require.NoError(t, db.Migrate())
	// idempotent
	require.NoError(t, db.Migrate())

	for _, table := range []string{"instruments", "prices", "transactions", "holdings"} {
		assert.True(t, tableExists(t, db, table), table)
	}
}

func TestMigrate_CacheSchema(t *testing.T) {
	db := openTestDB(t, "cache", ProfileCache)

	require.NoError(t, db.Migrate())
	assert.True(t, tableExists(t, db, "cache_entries"))
	assert.Equal(t, ProfileCache, db.Profile())
}

func TestMigrate_UnknownDatabaseIsNoop(t *testing.T) {
	db := openTestDB(t, "scratch", "")

	require.NoError(t, db.Migrate())
	assert.Equal(t, ProfileStandard, db.Profile())
	assert.False(t, tableExists(t, db, "instruments"))
}

func TestSchema_Unknown(t *testing.T) {
	_, err := Schema("universe")
	assert.Error(t, err)
}

func TestWithTransaction(t *testing.T) {
	db := openTestDB(t, "cache", ProfileCache)
	require.NoError(t, db.Migrate())

	count := func() int {
		var n int
		require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM cache_entries").Scan(&n))
		return n
	}

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO cache_entries (key, data, expires_at) VALUES ('a', x'00', 1)")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count())

	boom := errors.New("boom")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO cache_entries (key, data, expires_at) VALUES ('b', x'00', 1)"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count())

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")

	assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
}

func TestHealthAndStats(t *testing.T) {
	db := openTestDB(t, "portfolio", ProfileStandard)
	require.NoError(t, db.Migrate())

	ctx := context.Background()
	require.NoError(t, db.HealthCheck(ctx))
	require.NoError(t, db.QuickCheck(ctx))
	require.NoError(t, db.WALCheckpoint(""))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Positive(t, stats.PageCount)
	assert.Positive(t, stats.PageSize)
	assert.Positive(t, stats.SizeBytes)
}
