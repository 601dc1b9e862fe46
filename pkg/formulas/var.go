package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ZScore returns the standard-normal quantile for a confidence level (e.g. 1.645 for 0.95).
func ZScore(confidence float64) float64 {
	return distuv.UnitNormal.Quantile(confidence)
}

// ParametricVaR calculates parametric Value-at-Risk for a portfolio
//
// Formula:
//
//	VaR = value × (h·mean − z_c × sqrt(h)·volatility)
//
// Args:
//
//	value: Portfolio value
//	mean: Mean periodic portfolio return
//	volatility: Periodic portfolio volatility, sqrt(wᵀΣw)
//	confidence: Confidence level in (0.5, 1)
//	horizon: Horizon in periods (values below 1 are treated as 1)
//
// Returns:
//
//	The value change at the confidence threshold; negative values are losses
func ParametricVaR(value, mean, volatility, confidence float64, horizon int) float64 {
	h := float64(max(horizon, 1))
	return value * (h*mean - ZScore(confidence)*math.Sqrt(h)*volatility)
}

// HistoricalVaR returns the (1 − confidence) empirical quantile of returns,
// taken as the boundary (least severe) return of the tail.
// Returns nil for an empty input.
func HistoricalVaR(returns []float64, confidence float64) *float64 {
	tail := tailReturns(returns, confidence)
	if tail == nil {
		return nil
	}
	v := tail[len(tail)-1]
	return &v
}

// CalculateCVaR calculates Conditional Value at Risk (expected shortfall):
// the mean of the worst (1 − confidence) share of returns.
//
// Returns nil for an empty input; CVaR is negative for losses.
func CalculateCVaR(returns []float64, confidence float64) *float64 {
	tail := tailReturns(returns, confidence)
	if tail == nil {
		return nil
	}
	v := Mean(tail)
	return &v
}

// tailReturns returns the ceil(n × (1 − confidence)) worst returns, at least one.
func tailReturns(returns []float64, confidence float64) []float64 {
	if len(returns) == 0 {
		return nil
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	tailCount := int(math.Ceil(float64(len(sorted)) * (1.0 - confidence)))
	if tailCount < 1 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}
	return sorted[:tailCount]
}
