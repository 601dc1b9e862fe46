package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/internal/modules/performance"
	"github.com/aristath/horizon/internal/modules/prices"
	"github.com/aristath/horizon/internal/modules/returns"
	"github.com/aristath/horizon/internal/modules/risk"
)

// Rolling volatility windows per frequency (one month of business days, one quarter)
const (
	DailyRollingWindow   = 21
	MonthlyRollingWindow = 3
)

// ReportRequest asks for the analytics report of one portfolio
type ReportRequest struct {
	PortfolioID string
	Params      Params
	// End is the report date; zero means today
	End time.Time
}

// Report is the structured analytics response of one portfolio
type Report struct {
	RequestID      string             `json:"request_id"`
	PortfolioID    string             `json:"portfolio_id"`
	Range          domain.DateRange   `json:"range"`
	Frequency      domain.Frequency   `json:"frequency"`
	GeneratedAt    time.Time          `json:"generated_at"`
	PortfolioValue float64            `json:"portfolio_value"`
	Weights        map[string]float64 `json:"weights"`
	// Performance is computed over the current-weight return series that risk
	// uses: today's weights carried back over the range
	Performance *domain.PerformanceResult `json:"performance"`
	// Realized follows the ledger's valuation path; nil without a transaction source
	Realized *RealizedPerformance `json:"realized"`
	// Positions holds the time-weighted performance of each instrument with
	// transactions; nil when the position was not held during the range
	Positions         map[string]*domain.PerformanceResult `json:"positions"`
	Risk              *domain.RiskResult                   `json:"risk"`
	Exposure          *risk.Exposure                       `json:"exposure,omitempty"`
	RollingVolatility []domain.ValuePoint                  `json:"rolling_volatility"`
}

// snapshot is the loaded and aligned data of a portfolio
type snapshot struct {
	weights   map[string]float64
	ids       []string
	value     float64
	series    map[string]domain.PriceSeries
	periodic  []domain.ReturnSeries
	benchmark *domain.ReturnSeries
	portfolio domain.ReturnSeries
}

// Report builds the analytics report of a portfolio. Any sub-component failure
// is returned as an *Error naming the step, portfolio, instrument and range.
func (f *Facade) Report(ctx context.Context, req ReportRequest) (report *Report, err error) {
	started := time.Now()
	defer func() { f.observe("report", started, err) }()

	r, err := f.newRequest(req.PortfolioID, req.Params, req.End)
	if err != nil {
		return nil, err
	}

	key := cacheKey("report", r.portfolioID, r.rng, r.params)
	var hit Report
	if f.cached(ctx, key, &hit) {
		f.log.Debug().Str("portfolio", r.portfolioID).Msg("Serving cached report")
		return &hit, nil
	}

	snap, err := f.load(ctx, r, r.params.Frequency)
	if err != nil {
		return nil, err
	}

	report = &Report{
		RequestID:      r.id,
		PortfolioID:    r.portfolioID,
		Range:          r.rng,
		Frequency:      r.params.Frequency,
		GeneratedAt:    f.now().UTC(),
		PortfolioValue: snap.value,
		Weights:        snap.weights,
	}

	opts := performance.Options{
		RiskFreeRate: r.params.RiskFreeRate,
		Benchmark:    snap.benchmark,
		BenchmarkID:  r.params.BenchmarkID,
		Start:        snap.series[snap.ids[0]].Points[0].Time,
	}
	report.Performance, err = performance.Calculate(snap.portfolio, opts)
	if err != nil {
		return nil, r.fail("performance metrics", "", err)
	}

	if f.sources.Transactions != nil {
		txs, err := f.sources.Transactions.GetTransactions(ctx, r.portfolioID, time.Time{}, r.rng.End)
		if err != nil {
			return nil, r.fail("load transactions", "", err)
		}
		report.Positions, err = f.positions(r, snap, txs)
		if err != nil {
			return nil, err
		}
		report.Realized, err = f.realized(ctx, r, snap, txs, opts)
		if err != nil {
			return nil, err
		}
	}

	var instruments map[string]domain.InstrumentInfo
	var tags map[string]float64
	if f.sources.Catalog != nil {
		instruments, err = f.sources.Catalog.GetInstruments(ctx, snap.ids)
		if err != nil {
			return nil, r.fail("load instruments", "", err)
		}
		tags = risk.LiquidityTags(snap.weights, instruments)
		exposure := risk.CalculateExposure(snap.weights, instruments, r.rng.End)
		report.Exposure = &exposure
	}

	report.Risk, err = risk.Analyze(risk.Input{
		Series:         snap.periodic,
		Weights:        snap.weights,
		PortfolioValue: snap.value,
		Confidence:     r.params.Confidence,
		LiquidityTags:  tags,
	})
	if err != nil {
		return nil, r.fail("risk analysis", "", err)
	}

	window := DailyRollingWindow
	if r.params.Frequency == domain.FrequencyMonthly {
		window = MonthlyRollingWindow
	}
	report.RollingVolatility, err = performance.RollingVolatility(snap.portfolio, window)
	if err != nil && !errors.Is(err, domain.ErrInsufficientData) {
		return nil, r.fail("rolling volatility", "", err)
	}

	f.store(ctx, key, report)

	f.log.Info().
		Str("request_id", r.id).
		Str("portfolio", r.portfolioID).
		Str("range", r.rng.String()).
		Int("instruments", len(snap.ids)).
		Dur("duration", time.Since(started)).
		Msg("Report generated")

	return report, nil
}

// load reads holdings, fetches and aligns every price series (plus the
// benchmark) and derives periodic and portfolio returns.
func (f *Facade) load(ctx context.Context, r *request, freq domain.Frequency) (*snapshot, error) {
	weights, err := f.sources.Holdings.GetCurrentWeights(ctx, r.portfolioID)
	if err != nil {
		return nil, r.fail("load weights", "", err)
	}
	if len(weights) == 0 {
		return nil, r.fail("load weights", "", &domain.EmptyPortfolioError{PortfolioID: r.portfolioID})
	}
	value, err := f.sources.Holdings.GetPortfolioValue(ctx, r.portfolioID)
	if err != nil {
		return nil, r.fail("load portfolio value", "", err)
	}

	ids := sortedIDs(weights)
	fetchIDs := ids
	benchmarkID := r.params.BenchmarkID
	if benchmarkID != "" {
		if _, held := weights[benchmarkID]; !held {
			fetchIDs = append(append([]string{}, ids...), benchmarkID)
		}
	}

	results := f.fetcher.FetchAll(ctx, fetchIDs, r.rng, freq)
	if failed := prices.Failures(results); len(failed) > 0 {
		return nil, r.fail("fetch prices", "", &domain.PartialDataError{Failed: failed, Total: len(fetchIDs)})
	}

	raw := make([]domain.PriceSeries, len(results))
	for i, res := range results {
		raw[i] = res.Series
	}
	aligned, err := prices.Align(raw)
	if err != nil {
		return nil, r.fail("align prices", "", err)
	}

	snap := &snapshot{
		weights: weights,
		ids:     ids,
		value:   value,
		series:  make(map[string]domain.PriceSeries, len(aligned)),
	}
	for _, s := range aligned {
		snap.series[s.InstrumentID] = s
	}
	for _, id := range ids {
		snap.periodic = append(snap.periodic, returns.Periodic(snap.series[id]))
	}
	if benchmarkID != "" {
		bench := returns.Periodic(snap.series[benchmarkID])
		snap.benchmark = &bench
	}

	snap.portfolio, err = returns.Weighted(r.portfolioID, snap.periodic, weights)
	if err != nil {
		return nil, r.fail("portfolio returns", "", err)
	}
	return snap, nil
}

// positions computes the time-weighted performance of every held instrument
// from the portfolio's full transaction history up to the range end.
func (f *Facade) positions(r *request, snap *snapshot, txs []domain.Transaction) (map[string]*domain.PerformanceResult, error) {
	byInstrument := make(map[string][]domain.Transaction)
	for _, tx := range txs {
		if tx.InstrumentID == "" {
			continue
		}
		if _, held := snap.weights[tx.InstrumentID]; held {
			byInstrument[tx.InstrumentID] = append(byInstrument[tx.InstrumentID], tx)
		}
	}

	out := make(map[string]*domain.PerformanceResult, len(byInstrument))
	for _, id := range snap.ids {
		instrumentTxs, ok := byInstrument[id]
		if !ok {
			continue
		}
		twr, err := returns.TimeWeighted(snap.series[id], instrumentTxs)
		if err != nil {
			return nil, r.fail("time-weighted returns", id, err)
		}
		if twr.Len() == 0 {
			out[id] = nil
			continue
		}
		result, err := performance.Calculate(twr, performance.Options{RiskFreeRate: r.params.RiskFreeRate})
		if err != nil {
			return nil, r.fail("position performance", id, err)
		}
		out[id] = result
	}
	return out, nil
}
