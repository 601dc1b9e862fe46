package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/horizon/internal/modules/allocation"
)

// ErrCatalogUnavailable is returned when an operation needs instrument metadata
// and the facade has no catalog
var ErrCatalogUnavailable = errors.New("instrument catalog not configured")

// Allocation reviews a portfolio's allocation against the recommendation for
// riskTolerance and suggests rebalancing trades.
func (f *Facade) Allocation(ctx context.Context, portfolioID string, riskTolerance float64) (analysis *allocation.Analysis, err error) {
	started := time.Now()
	defer func() { f.observe("allocation", started, err) }()

	r := &request{portfolioID: portfolioID}
	if f.sources.Catalog == nil {
		return nil, r.fail("load instruments", "", ErrCatalogUnavailable)
	}

	weights, err := f.sources.Holdings.GetCurrentWeights(ctx, portfolioID)
	if err != nil {
		return nil, r.fail("load weights", "", err)
	}
	value, err := f.sources.Holdings.GetPortfolioValue(ctx, portfolioID)
	if err != nil {
		return nil, r.fail("load portfolio value", "", err)
	}
	instruments, err := f.sources.Catalog.GetInstruments(ctx, sortedIDs(weights))
	if err != nil {
		return nil, r.fail("load instruments", "", err)
	}

	analysis, err = allocation.Analyze(weights, instruments, value, riskTolerance)
	if err != nil {
		return nil, r.fail("allocation analysis", "", err)
	}
	return analysis, nil
}
