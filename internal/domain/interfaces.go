package domain

import (
	"context"
	"time"
)

// PriceSource returns an instrument's prices over [start, end], ordered by time
// and free of duplicate timestamps.
type PriceSource interface {
	GetPriceSeries(ctx context.Context, instrumentID string, start, end time.Time) ([]PricePoint, error)
}

// TransactionSource returns a portfolio's transactions over [start, end], ordered by time.
type TransactionSource interface {
	GetTransactions(ctx context.Context, portfolioID string, start, end time.Time) ([]Transaction, error)
}

// HoldingsSource describes a portfolio's current holdings.
// Weights sum to 1.0 within tolerance.
type HoldingsSource interface {
	GetCurrentWeights(ctx context.Context, portfolioID string) (map[string]float64, error)
	GetPortfolioValue(ctx context.Context, portfolioID string) (float64, error)
}

// InstrumentCatalog returns metadata for instruments. Unknown ids are absent
// from the result rather than an error.
type InstrumentCatalog interface {
	GetInstruments(ctx context.Context, ids []string) (map[string]InstrumentInfo, error)
}
