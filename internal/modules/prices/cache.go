package prices

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/horizon/internal/domain"
)

// DefaultCacheTTL is how long a fetched price range stays fresh
const DefaultCacheTTL = 6 * time.Hour

// CacheStore is a byte-oriented TTL store (sqlite or redis backed)
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// CachedSource decorates a PriceSource with a TTL cache keyed by
// (instrument_id, start, end). Cache failures degrade to the underlying source.
type CachedSource struct {
	next  domain.PriceSource
	store CacheStore
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedSource wraps next with store
func NewCachedSource(next domain.PriceSource, store CacheStore, ttl time.Duration, log zerolog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{
		next:  next,
		store: store,
		ttl:   ttl,
		log:   log.With().Str("component", "price_cache").Logger(),
	}
}

// CacheKey builds the cache key of a price range
func CacheKey(instrumentID string, start, end time.Time) string {
	return fmt.Sprintf("prices:%s:%s:%s", instrumentID, start.UTC().Format("20060102"), end.UTC().Format("20060102"))
}

// GetPriceSeries implements domain.PriceSource
func (c *CachedSource) GetPriceSeries(ctx context.Context, instrumentID string, start, end time.Time) ([]domain.PricePoint, error) {
	key := CacheKey(instrumentID, start, end)

	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Price cache read failed")
	} else if ok {
		var points []domain.PricePoint
		if err := msgpack.Unmarshal(data, &points); err == nil {
			c.log.Debug().Str("key", key).Int("points", len(points)).Msg("Price cache hit")
			return points, nil
		}
		c.log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
	}

	points, err := c.next.GetPriceSeries(ctx, instrumentID, start, end)
	if err != nil {
		return nil, err
	}

	encoded, err := msgpack.Marshal(points)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to encode price series")
		return points, nil
	}
	if err := c.store.Set(ctx, key, encoded, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Price cache write failed")
	}
	return points, nil
}
