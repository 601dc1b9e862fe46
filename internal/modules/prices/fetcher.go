package prices

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/aristath/horizon/internal/domain"
)

// FetchResult is the outcome of fetching one instrument's series
type FetchResult struct {
	InstrumentID string
	Series       domain.PriceSeries
	Err          error
	Duration     time.Duration
}

// FetchObserver receives per-instrument fetch outcomes (metrics hook)
type FetchObserver interface {
	ObserveFetch(instrumentID string, d time.Duration, err error)
}

// FetcherConfig bounds the fan-out towards the price source
type FetcherConfig struct {
	MaxConcurrency int           // concurrent requests, default 4
	RatePerMinute  int           // request budget, 0 disables limiting
	Timeout        time.Duration // per-instrument timeout, 0 disables
}

// Fetcher fetches and normalizes price series for many instruments concurrently
type Fetcher struct {
	source   domain.PriceSource
	cfg      FetcherConfig
	limiter  *rate.Limiter
	observer FetchObserver
	log      zerolog.Logger
}

// NewFetcher creates a fetcher over source
func NewFetcher(source domain.PriceSource, cfg FetcherConfig, log zerolog.Logger) *Fetcher {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}

	f := &Fetcher{
		source: source,
		cfg:    cfg,
		log:    log.With().Str("component", "price_fetcher").Logger(),
	}
	if cfg.RatePerMinute > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), cfg.MaxConcurrency)
	}
	return f
}

// WithObserver attaches a fetch observer
func (f *Fetcher) WithObserver(o FetchObserver) *Fetcher {
	f.observer = o
	return f
}

// FetchAll fetches every instrument over rng, returning one result per id in input order.
// A failing or slow instrument never cancels the others; errors are reported per result.
func (f *Fetcher) FetchAll(ctx context.Context, ids []string, rng domain.DateRange, freq domain.Frequency) []FetchResult {
	results := make([]FetchResult, len(ids))

	var g errgroup.Group
	g.SetLimit(f.cfg.MaxConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			start := time.Now()
			series, err := f.fetchOne(ctx, id, rng, freq)
			results[i] = FetchResult{InstrumentID: id, Series: series, Err: err, Duration: time.Since(start)}

			if f.observer != nil {
				f.observer.ObserveFetch(id, results[i].Duration, err)
			}
			if err != nil {
				f.log.Warn().Err(err).Str("instrument", id).Str("range", rng.String()).Msg("Price fetch failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	f.log.Debug().Int("instruments", len(ids)).Int("failed", len(Failures(results))).Msg("Price fan-out completed")
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, id string, rng domain.DateRange, freq domain.Frequency) (domain.PriceSeries, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return domain.PriceSeries{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	raw, err := f.source.GetPriceSeries(ctx, id, rng.Start, rng.End)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("get price series: %w", err)
	}
	return Normalize(id, raw, freq)
}

// Failures collects the failed instruments of a fan-out
func Failures(results []FetchResult) map[string]error {
	failed := make(map[string]error)
	for _, r := range results {
		if r.Err != nil {
			failed[r.InstrumentID] = r.Err
		}
	}
	return failed
}
