// Package clientdata provides TTL caches for price series and analytics
// results. Entries are opaque byte blobs with an expiration timestamp.
package clientdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store is a sqlite-backed TTL cache over the cache_entries table
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a new cache store on cache.db
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Set saves data with expiration = now + ttl, replacing any previous entry.
func (s *Store) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	expiresAt := s.now().Add(ttl).Unix()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache_entries (key, data, expires_at) VALUES (?, ?, ?)",
		key, data, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}
	return nil
}

// Get returns data only while it is fresh. A missing or expired key reports
// false without an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM cache_entries WHERE key = ? AND expires_at > ?",
		key, s.now().Unix()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}
	return data, true, nil
}

// GetStale returns data regardless of expiration, for use when the source is
// unavailable and stale data beats no data.
func (s *Store) GetStale(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM cache_entries WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}
	return data, true, nil
}

// Delete removes a specific entry.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// DeleteExpired removes every entry whose expires_at has passed.
// Returns the number of rows deleted.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE expires_at <= ?", s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Count returns the number of stored entries, fresh or not
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}
