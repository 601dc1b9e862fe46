package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeReturns(r float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func TestVariance(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		want      float64
		tolerance float64
	}{
		{"empty", nil, 0, 0},
		{"single value", []float64{0.1}, 0, 0},
		{"constant series is exactly zero", makeReturns(0.001, 252), 0, 0},
		{"sample variance uses n-1", []float64{1, 2, 3, 4}, 1.6666666667, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Variance(tt.values)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Variance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Nil(t, AnnualizedVolatility([]float64{0.1}, TradingDaysPerYear))

	flat := AnnualizedVolatility([]float64{0.10, 0.10}, TradingDaysPerYear)
	require.NotNil(t, flat)
	assert.Equal(t, 0.0, *flat)

	vol := AnnualizedVolatility([]float64{0.01, -0.01, 0.02, -0.02}, MonthsPerYear)
	require.NotNil(t, vol)
	assert.InDelta(t, StdDev([]float64{0.01, -0.01, 0.02, -0.02})*math.Sqrt(12), *vol, 1e-12)
}

func TestCorrelation(t *testing.T) {
	x := []float64{0.01, 0.02, -0.01, 0.03}
	assert.InDelta(t, 1.0, Correlation(x, x), 1e-12)

	neg := []float64{-0.01, -0.02, 0.01, -0.03}
	assert.InDelta(t, -1.0, Correlation(x, neg), 1e-12)

	assert.Equal(t, 0.0, Correlation(x, makeReturns(0.01, 4)), "flat series correlates 0")
	assert.Equal(t, 0.0, Correlation(x, x[:2]), "length mismatch")
}

func TestBeta(t *testing.T) {
	bench := []float64{0.01, -0.02, 0.03, 0.00}
	asset := make([]float64, len(bench))
	for i, b := range bench {
		asset[i] = 2 * b
	}

	beta := Beta(asset, bench)
	require.NotNil(t, beta)
	assert.InDelta(t, 2.0, *beta, 1e-12)

	assert.Nil(t, Beta(asset, makeReturns(0.01, 4)), "flat benchmark")
	assert.Nil(t, Beta(asset[:1], bench[:1]), "single observation")
}

func TestFinite(t *testing.T) {
	assert.Nil(t, Finite(math.NaN()))
	assert.Nil(t, Finite(math.Inf(1)))
	require.NotNil(t, Finite(1.5))
	assert.Equal(t, 1.5, *Finite(1.5))
}
