// Package analytics orchestrates price fetching, returns, performance, risk and
// simulation into one response per request.
package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/internal/modules/prices"
	"github.com/aristath/horizon/internal/modules/simulation"
)

// Recorder receives operation outcomes (metrics hook)
type Recorder interface {
	ObserveOperation(op string, d time.Duration, err error)
	ObserveSimulation(model string, trials int, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, time.Duration, error) {}
func (nopRecorder) ObserveSimulation(string, int, time.Duration)  {}

// Sources are the external collaborators of the facade. Catalog is optional;
// without it exposure and liquidity are not reported.
type Sources struct {
	Prices       domain.PriceSource
	Transactions domain.TransactionSource
	Holdings     domain.HoldingsSource
	Catalog      domain.InstrumentCatalog
}

// Config tunes the facade
type Config struct {
	Fetch prices.FetcherConfig
	// ReportTTL is how long a report is served from the result cache; 0 disables caching
	ReportTTL time.Duration
	// Defaults are applied to requests that do not override them
	Defaults Params
}

// Facade answers report and simulation requests
type Facade struct {
	sources   Sources
	fetcher   *prices.Fetcher
	simulator *simulation.Simulator
	cache     prices.CacheStore
	cfg       Config
	recorder  Recorder
	now       func() time.Time
	log       zerolog.Logger
}

// NewFacade creates a facade. cache may be nil.
func NewFacade(sources Sources, simulator *simulation.Simulator, cache prices.CacheStore, cfg Config, log zerolog.Logger) *Facade {
	if cfg.Defaults == (Params{}) {
		cfg.Defaults = DefaultParams()
	}
	log = log.With().Str("component", "analytics").Logger()
	return &Facade{
		sources:   sources,
		fetcher:   prices.NewFetcher(sources.Prices, cfg.Fetch, log),
		simulator: simulator,
		cache:     cache,
		cfg:       cfg,
		recorder:  nopRecorder{},
		now:       time.Now,
		log:       log,
	}
}

// WithRecorder attaches a metrics recorder to the facade and its fetcher
func (f *Facade) WithRecorder(r Recorder) *Facade {
	f.recorder = r
	if o, ok := r.(prices.FetchObserver); ok {
		f.fetcher.WithObserver(o)
	}
	return f
}

// Defaults returns the parameters requests start from
func (f *Facade) Defaults() Params {
	return f.cfg.Defaults
}

// request carries the resolved inputs of one call
type request struct {
	id          string
	portfolioID string
	rng         domain.DateRange
	params      Params
}

func (f *Facade) newRequest(portfolioID string, params Params, end time.Time) (*request, error) {
	if err := params.Validate(); err != nil {
		return nil, &Error{Op: "validate parameters", PortfolioID: portfolioID, Err: err}
	}
	return &request{
		id:          uuid.New().String(),
		portfolioID: portfolioID,
		rng:         f.resolveRange(end, params.LookbackDays),
		params:      params,
	}, nil
}

// resolveRange ends at end (now when zero) and spans lookbackDays calendar days.
func (f *Facade) resolveRange(end time.Time, lookbackDays int) domain.DateRange {
	if end.IsZero() {
		end = f.now()
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return domain.DateRange{Start: end.AddDate(0, 0, -lookbackDays), End: end}
}

func (f *Facade) observe(op string, started time.Time, err error) {
	f.recorder.ObserveOperation(op, time.Since(started), err)
}

// cacheKey hashes everything a report depends on
func cacheKey(kind, portfolioID string, rng domain.DateRange, params Params) string {
	payload, _ := json.Marshal(struct {
		PortfolioID string
		Range       string
		Params      Params
	}{portfolioID, rng.String(), params})
	h := sha256.Sum256(payload)
	return fmt.Sprintf("%s:%s", kind, hex.EncodeToString(h[:]))
}

func (f *Facade) cached(ctx context.Context, key string, out any) bool {
	if f.cache == nil || f.cfg.ReportTTL <= 0 {
		return false
	}
	data, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		f.log.Warn().Err(err).Str("key", key[:16]).Msg("Result cache read failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		f.log.Warn().Err(err).Msg("Discarding undecodable cached result")
		return false
	}
	return true
}

func (f *Facade) store(ctx context.Context, key string, v any) {
	if f.cache == nil || f.cfg.ReportTTL <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		f.log.Warn().Err(err).Msg("Failed to encode result for cache")
		return
	}
	if err := f.cache.Set(ctx, key, data, f.cfg.ReportTTL); err != nil {
		f.log.Warn().Err(err).Msg("Result cache write failed")
	}
}

func sortedIDs(weights map[string]float64) []string {
	ids := make([]string, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
