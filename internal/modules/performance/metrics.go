// Package performance computes performance statistics over a return series.
// Everything here is a pure function of its inputs.
package performance

import (
	"time"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/pkg/formulas"
)

// Options parameterize a performance calculation
type Options struct {
	RiskFreeRate float64
	// Benchmark enables beta; its timestamps must match the series exactly
	Benchmark   *domain.ReturnSeries
	BenchmarkID string
	// Start is the valuation time before the first return, used to date a
	// drawdown that peaks at the very start
	Start time.Time
}

// Calculate computes the PerformanceResult of rs.
//
// It fails with an InsufficientDataError when rs has no usable return (fewer
// than two price points) and with a SeriesAlignmentError when a benchmark does
// not share rs's timestamps. Statistics that are undefined for the sample
// (volatility of one return, Sharpe of a flat series, beta against a flat
// benchmark) are nil.
func Calculate(rs domain.ReturnSeries, opts Options) (*domain.PerformanceResult, error) {
	n := rs.Len()
	if n < 1 {
		return nil, &domain.InsufficientDataError{Op: "performance metrics", Required: 1, Got: n}
	}

	ppy := rs.Frequency.PeriodsPerYear()
	values := rs.Values()

	result := &domain.PerformanceResult{
		RiskFreeRate:   opts.RiskFreeRate,
		BenchmarkID:    opts.BenchmarkID,
		PeriodsPerYear: ppy,
		SampleSize:     n,
		LowConfidence:  n < ppy,
	}

	cumulative := formulas.CumulativeReturn(values)
	result.CumulativeReturn = formulas.Finite(cumulative)
	result.AnnualizedReturn = formulas.AnnualizeReturn(cumulative, n, ppy)
	result.Volatility = formulas.AnnualizedVolatility(values, ppy)
	result.SharpeRatio = formulas.CalculateSharpeRatio(result.AnnualizedReturn, opts.RiskFreeRate, result.Volatility)
	result.SortinoRatio = formulas.CalculateSortinoRatio(values, result.AnnualizedReturn, opts.RiskFreeRate, ppy)

	if dd := formulas.CalculateMaxDrawdown(formulas.ValuePath(values)); dd != nil {
		result.MaxDrawdown = &dd.Max
		if dd.Max > 0 {
			times := usableTimes(rs)
			result.DrawdownPeak = pathTime(times, dd.PeakIndex, opts.Start)
			result.DrawdownTrough = pathTime(times, dd.TroughIndex, opts.Start)
		}
	}

	if opts.Benchmark != nil {
		beta, err := Beta(rs, *opts.Benchmark)
		if err != nil {
			return nil, err
		}
		result.Beta = beta
		if result.BenchmarkID == "" {
			result.BenchmarkID = opts.Benchmark.InstrumentID
		}
	}

	return result, nil
}

// Beta computes cov(asset, benchmark) / var(benchmark) over the periods where
// neither series is skipped. Timestamps must match exactly.
func Beta(asset, benchmark domain.ReturnSeries) (*float64, error) {
	if err := asset.CheckAligned(benchmark); err != nil {
		return nil, err
	}

	var a, b []float64
	for i := range asset.Points {
		if asset.Points[i].Skipped || benchmark.Points[i].Skipped {
			continue
		}
		a = append(a, asset.Points[i].Return)
		b = append(b, benchmark.Points[i].Return)
	}
	return formulas.Beta(a, b), nil
}

func usableTimes(rs domain.ReturnSeries) []time.Time {
	out := make([]time.Time, 0, len(rs.Points))
	for _, p := range rs.Points {
		if !p.Skipped {
			out = append(out, p.Time)
		}
	}
	return out
}

// pathTime maps a value-path index to a timestamp; index 0 is the start value.
func pathTime(times []time.Time, idx int, start time.Time) *time.Time {
	if idx == 0 {
		if start.IsZero() {
			return nil
		}
		return &start
	}
	t := times[idx-1]
	return &t
}
