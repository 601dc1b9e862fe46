package prices

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, false, errors.New("store down")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	m.ttls[key] = ttl
	return nil
}

func TestCachedSource_MissThenHit(t *testing.T) {
	src := newFakeSource()
	src.series["A"] = points("A", date(2024, 1, 1), 10, 11, 12)
	store := newMemoryStore()

	cached := NewCachedSource(src, store, time.Hour, zerolog.Nop())
	ctx := context.Background()

	first, err := cached.GetPriceSeries(ctx, "A", date(2024, 1, 1), date(2024, 1, 3))
	require.NoError(t, err)
	second, err := cached.GetPriceSeries(ctx, "A", date(2024, 1, 1), date(2024, 1, 3))
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls["A"])
	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].Time.Equal(second[i].Time))
		assert.Equal(t, first[i].Price, second[i].Price)
	}
	assert.Equal(t, time.Hour, store.ttls[CacheKey("A", date(2024, 1, 1), date(2024, 1, 3))])
}

func TestCachedSource_DifferentRangesAreDistinctKeys(t *testing.T) {
	assert.NotEqual(t,
		CacheKey("A", date(2024, 1, 1), date(2024, 1, 3)),
		CacheKey("A", date(2024, 1, 1), date(2024, 1, 4)))
}

func TestCachedSource_StoreFailureFallsThrough(t *testing.T) {
	src := newFakeSource()
	src.series["A"] = points("A", date(2024, 1, 1), 10)
	store := newMemoryStore()
	store.failGet = true

	cached := NewCachedSource(src, store, 0, zerolog.Nop())
	pts, err := cached.GetPriceSeries(context.Background(), "A", date(2024, 1, 1), date(2024, 1, 1))
	require.NoError(t, err)
	assert.Len(t, pts, 1)
}

func TestCachedSource_SourceErrorIsNotCached(t *testing.T) {
	src := newFakeSource()
	src.failures["A"] = errors.New("boom")
	store := newMemoryStore()

	cached := NewCachedSource(src, store, time.Minute, zerolog.Nop())
	_, err := cached.GetPriceSeries(context.Background(), "A", date(2024, 1, 1), date(2024, 1, 2))
	assert.Error(t, err)
	assert.Empty(t, store.data)
}
