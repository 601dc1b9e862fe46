// Package formulas provides the pure numeric building blocks of the analytics engine.
// Every function operates on plain float64 slices and reports undefined statistics
// as nil pointers instead of NaN.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Periods per year for the supported sampling frequencies.
const (
	TradingDaysPerYear = 252
	MonthsPerYear      = 12
)

// Mean calculates the arithmetic mean using gonum
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	return stat.Mean(values, nil)
}

// Variance calculates the sample variance (n-1 denominator) using gonum.
// A constant series reports exactly 0.
func Variance(values []float64) float64 {
	if len(values) < 2 || IsConstant(values) {
		return 0.0
	}
	return stat.Variance(values, nil)
}

// StdDev calculates the sample standard deviation (n-1 denominator)
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Covariance calculates the sample covariance between two equal-length series
func Covariance(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0.0
	}
	if IsConstant(x) || IsConstant(y) {
		return 0.0
	}
	return stat.Covariance(x, y, nil)
}

// Correlation calculates the Pearson correlation between two series.
// A zero-variance input correlates 0 with everything.
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0.0
	}
	if IsConstant(x) || IsConstant(y) {
		return 0.0
	}
	return Clamp(stat.Correlation(x, y, nil), -1, 1)
}

// IsConstant reports whether every value equals the first one.
func IsConstant(values []float64) bool {
	for _, v := range values[min(1, len(values)):] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// AnnualizedVolatility calculates the annualized sample volatility
//
// Formula: StdDev(returns) × sqrt(periodsPerYear)
//
// Returns nil when fewer than two returns exist.
func AnnualizedVolatility(returns []float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}
	vol := StdDev(returns) * math.Sqrt(float64(periodsPerYear))
	return &vol
}

// Beta calculates Cov(asset, benchmark) / Var(benchmark).
// Returns nil for fewer than two observations, a length mismatch or a flat benchmark.
func Beta(asset, benchmark []float64) *float64 {
	if len(asset) != len(benchmark) || len(asset) < 2 {
		return nil
	}
	v := Variance(benchmark)
	if v == 0 {
		return nil
	}
	b := Covariance(asset, benchmark) / v
	return &b
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Finite returns a pointer to v, or nil when v is NaN or infinite.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
