package formulas

import "math"

// CalculateSharpeRatio calculates the Sharpe ratio from annualized inputs
//
// Formula:
//
//	Sharpe = (Annualized Return - Risk-free Rate) / Annualized Volatility
//
// Args:
//
//	annualizedReturn: Annualized portfolio return (nil when undefined)
//	riskFreeRate: Annual risk-free rate as decimal, e.g. 0.02
//	volatility: Annualized volatility (nil when undefined)
//
// Returns:
//
//	Sharpe ratio, or nil when either input is undefined or volatility is 0
func CalculateSharpeRatio(annualizedReturn *float64, riskFreeRate float64, volatility *float64) *float64 {
	if annualizedReturn == nil || volatility == nil || *volatility <= 0 {
		return nil
	}
	return Finite((*annualizedReturn - riskFreeRate) / *volatility)
}

// DownsideDeviation calculates the annualized deviation of returns below the
// periodic minimum acceptable return. Returns nil when no return falls below it.
func DownsideDeviation(returns []float64, targetReturn float64, periodsPerYear int) *float64 {
	periodicMAR := targetReturn / float64(periodsPerYear)

	var sumSquares float64
	count := 0
	for _, r := range returns {
		if r < periodicMAR {
			d := r - periodicMAR
			sumSquares += d * d
			count++
		}
	}
	if count == 0 {
		return nil
	}

	dd := math.Sqrt(sumSquares/float64(count)) * math.Sqrt(float64(periodsPerYear))
	if dd == 0 {
		return nil
	}
	return &dd
}

// CalculateSortinoRatio calculates the Sortino ratio (downside version of Sharpe)
//
// Formula:
//
//	Sortino = (Annualized Return - Risk-free Rate) / Annualized Downside Deviation
//
// The risk-free rate doubles as the minimum acceptable return.
func CalculateSortinoRatio(returns []float64, annualizedReturn *float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 || annualizedReturn == nil {
		return nil
	}
	dd := DownsideDeviation(returns, riskFreeRate, periodsPerYear)
	if dd == nil {
		return nil
	}
	return Finite((*annualizedReturn - riskFreeRate) / *dd)
}
