package formulas

import "math"

// CalculateReturns converts a price series to simple periodic returns.
// Pairs with a non-positive starting price are skipped.
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 {
			returns = append(returns, prices[i]/prices[i-1]-1)
		}
	}
	return returns
}

// CalculateLogReturns converts a price series to log returns.
func CalculateLogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 && prices[i] > 0 {
			returns = append(returns, math.Log(prices[i]/prices[i-1]))
		}
	}
	return returns
}

// CumulativeReturn geometrically chains periodic returns
//
// Formula: R_total = ∏(1 + r_i) − 1
func CumulativeReturn(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth - 1
}

// AnnualizeReturn compounds a cumulative return observed over `periods` periods
// to a yearly basis.
//
// Formula: (1 + cumulative)^(periodsPerYear / periods) − 1
//
// The actual observed period count is used, so short samples are annualized
// as-is. Returns nil for zero periods or a total loss.
func AnnualizeReturn(cumulative float64, periods, periodsPerYear int) *float64 {
	if periods <= 0 || periodsPerYear <= 0 {
		return nil
	}
	growth := 1 + cumulative
	if growth <= 0 {
		return nil
	}
	return Finite(math.Pow(growth, float64(periodsPerYear)/float64(periods)) - 1)
}

// ValuePath turns periodic returns into a value path that starts at 1.0.
// The result has len(returns)+1 points.
func ValuePath(returns []float64) []float64 {
	path := make([]float64, len(returns)+1)
	path[0] = 1.0
	for i, r := range returns {
		path[i+1] = path[i] * (1 + r)
	}
	return path
}
