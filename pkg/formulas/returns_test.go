package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateReturns(t *testing.T) {
	returns := CalculateReturns([]float64{100, 110, 121})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-12)
	assert.InDelta(t, 0.10, returns[1], 1e-12)

	assert.Nil(t, CalculateReturns([]float64{100}))
}

func TestCumulativeReturn(t *testing.T) {
	assert.InDelta(t, 0.21, CumulativeReturn([]float64{0.10, 0.10}), 1e-12)
	assert.Equal(t, 0.0, CumulativeReturn(nil))
}

func TestAnnualizeReturn_ConstantReturnRecoversYearlyRate(t *testing.T) {
	tests := []struct {
		name           string
		r              float64
		periods        int
		periodsPerYear int
	}{
		{"short daily sample", 0.001, 10, TradingDaysPerYear},
		{"full daily year", 0.0005, 252, TradingDaysPerYear},
		{"multi-year monthly", 0.01, 60, MonthsPerYear},
		{"negative monthly", -0.005, 7, MonthsPerYear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cumulative := CumulativeReturn(makeReturns(tt.r, tt.periods))
			got := AnnualizeReturn(cumulative, tt.periods, tt.periodsPerYear)
			require.NotNil(t, got)

			want := math.Pow(1+tt.r, float64(tt.periodsPerYear)) - 1
			assert.InDelta(t, want, *got, 1e-9)
		})
	}
}

func TestAnnualizeReturn_Undefined(t *testing.T) {
	assert.Nil(t, AnnualizeReturn(0.1, 0, TradingDaysPerYear))
	assert.Nil(t, AnnualizeReturn(-1.0, 5, TradingDaysPerYear))
}

func TestValuePath(t *testing.T) {
	path := ValuePath([]float64{0.5, -0.5})
	assert.Equal(t, []float64{1.0, 1.5, 0.75}, path)
}
