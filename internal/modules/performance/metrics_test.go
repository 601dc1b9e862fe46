package performance

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/internal/modules/returns"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func priceSeries(prices ...float64) domain.PriceSeries {
	s := domain.PriceSeries{InstrumentID: "AAA", Frequency: domain.FrequencyDaily}
	for i, p := range prices {
		s.Points = append(s.Points, domain.PricePoint{InstrumentID: "AAA", Time: day0.AddDate(0, 0, i), Price: p})
	}
	return s
}

func returnSeries(id string, freq domain.Frequency, values ...float64) domain.ReturnSeries {
	rs := domain.ReturnSeries{InstrumentID: id, Frequency: freq}
	for i, v := range values {
		rs.Points = append(rs.Points, domain.ReturnPoint{Time: day0.AddDate(0, 0, i+1), Return: v})
	}
	return rs
}

func constant(r float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func TestCalculate_ScenarioA(t *testing.T) {
	rs := returns.Periodic(priceSeries(100, 110, 121))

	res, err := Calculate(rs, Options{RiskFreeRate: 0.02})
	require.NoError(t, err)

	require.NotNil(t, res.CumulativeReturn)
	assert.InDelta(t, 0.21, *res.CumulativeReturn, 1e-12)
	require.NotNil(t, res.AnnualizedReturn)
	assert.InDelta(t, math.Pow(1.21, 252.0/2)-1, *res.AnnualizedReturn, 1e-3*math.Pow(1.21, 126))

	require.NotNil(t, res.Volatility)
	assert.Equal(t, 0.0, *res.Volatility)
	assert.Nil(t, res.SharpeRatio)

	assert.Equal(t, 2, res.SampleSize)
	assert.True(t, res.LowConfidence)
	assert.Equal(t, 0.02, res.RiskFreeRate)
	assert.Equal(t, 252, res.PeriodsPerYear)
}

func TestCalculate_ScenarioD_SinglePricePoint(t *testing.T) {
	_, err := Calculate(returns.Periodic(priceSeries(100)), Options{})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestCalculate_ConstantReturnRecoversAnnualRate(t *testing.T) {
	tests := []struct {
		name string
		freq domain.Frequency
		r    float64
		n    int
	}{
		{"daily short", domain.FrequencyDaily, 0.0004, 30},
		{"daily long", domain.FrequencyDaily, -0.0002, 600},
		{"monthly", domain.FrequencyMonthly, 0.008, 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Calculate(returnSeries("X", tt.freq, constant(tt.r, tt.n)...), Options{RiskFreeRate: 0.01})
			require.NoError(t, err)

			want := math.Pow(1+tt.r, float64(tt.freq.PeriodsPerYear())) - 1
			require.NotNil(t, res.AnnualizedReturn)
			assert.InDelta(t, want, *res.AnnualizedReturn, 1e-9)

			require.NotNil(t, res.Volatility)
			assert.Equal(t, 0.0, *res.Volatility, "constant series has zero volatility")
			assert.Nil(t, res.SharpeRatio)
			assert.Equal(t, tt.n < tt.freq.PeriodsPerYear(), res.LowConfidence)
		})
	}
}

func TestCalculate_VolatilityAndSharpe(t *testing.T) {
	values := []float64{0.01, -0.02, 0.015, 0.005, -0.01, 0.02}
	res, err := Calculate(returnSeries("X", domain.FrequencyMonthly, values...), Options{RiskFreeRate: 0.02})
	require.NoError(t, err)

	require.NotNil(t, res.Volatility)
	require.NotNil(t, res.SharpeRatio)
	assert.InDelta(t, (*res.AnnualizedReturn-0.02)/(*res.Volatility), *res.SharpeRatio, 1e-12)
	assert.NotNil(t, res.SortinoRatio)
}

func TestCalculate_SingleReturnHasNoVolatility(t *testing.T) {
	res, err := Calculate(returns.Periodic(priceSeries(100, 105)), Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Volatility)
	assert.Nil(t, res.SharpeRatio)
	assert.NotNil(t, res.AnnualizedReturn)
}

func TestCalculate_MaxDrawdownBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 50; trial++ {
		values := make([]float64, 40)
		for i := range values {
			values[i] = rng.NormFloat64() * 0.05
		}

		res, err := Calculate(returnSeries("X", domain.FrequencyDaily, values...), Options{})
		require.NoError(t, err)
		require.NotNil(t, res.MaxDrawdown)
		assert.GreaterOrEqual(t, *res.MaxDrawdown, 0.0)
		assert.LessOrEqual(t, *res.MaxDrawdown, 1.0)
	}

	res, err := Calculate(returns.Periodic(priceSeries(100, 101, 105, 110)), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, *res.MaxDrawdown)
	assert.Nil(t, res.DrawdownPeak)
}

func TestCalculate_DrawdownDates(t *testing.T) {
	rs := returns.Periodic(priceSeries(100, 120, 90, 95, 92))

	res, err := Calculate(rs, Options{Start: day0})
	require.NoError(t, err)

	assert.InDelta(t, 0.25, *res.MaxDrawdown, 1e-12)
	require.NotNil(t, res.DrawdownPeak)
	require.NotNil(t, res.DrawdownTrough)
	assert.Equal(t, day0.AddDate(0, 0, 1), *res.DrawdownPeak)
	assert.Equal(t, day0.AddDate(0, 0, 2), *res.DrawdownTrough)
}

func TestCalculate_Beta(t *testing.T) {
	bench := returnSeries("IDX", domain.FrequencyDaily, 0.01, -0.02, 0.03, 0.0)
	asset := returnSeries("AAA", domain.FrequencyDaily, 0.015, -0.03, 0.045, 0.0)

	res, err := Calculate(asset, Options{Benchmark: &bench})
	require.NoError(t, err)
	require.NotNil(t, res.Beta)
	assert.InDelta(t, 1.5, *res.Beta, 1e-12)
	assert.Equal(t, "IDX", res.BenchmarkID)

	flat := returnSeries("FLAT", domain.FrequencyDaily, 0.01, 0.01, 0.01, 0.01)
	res, err = Calculate(asset, Options{Benchmark: &flat, BenchmarkID: "FLAT"})
	require.NoError(t, err)
	assert.Nil(t, res.Beta)
}

func TestCalculate_MisalignedBenchmarkFailsLoudly(t *testing.T) {
	asset := returnSeries("AAA", domain.FrequencyDaily, 0.01, 0.02, 0.03)
	bench := returnSeries("IDX", domain.FrequencyDaily, 0.01, 0.02, 0.03)
	bench.Points[1].Time = bench.Points[1].Time.Add(time.Hour)

	_, err := Calculate(asset, Options{Benchmark: &bench})
	assert.ErrorIs(t, err, domain.ErrSeriesAlignment)

	short := returnSeries("IDX", domain.FrequencyDaily, 0.01)
	_, err = Calculate(asset, Options{Benchmark: &short})
	assert.ErrorIs(t, err, domain.ErrSeriesAlignment)
}

func TestCalculate_SentinelsSerializeAsNull(t *testing.T) {
	res, err := Calculate(returns.Periodic(priceSeries(100, 110, 121)), Options{})
	require.NoError(t, err)

	data, err := json.Marshal(res.Record())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sharpe_ratio":null`)
	assert.Contains(t, string(data), `"beta":null`)
	assert.NotContains(t, string(data), "NaN")
}

func TestCalculate_SkippedPeriodsAreExcluded(t *testing.T) {
	rs := returnSeries("X", domain.FrequencyDaily, 0.1, 0, 0.1)
	rs.Points[1].Skipped = true

	res, err := Calculate(rs, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SampleSize)
	assert.InDelta(t, 0.21, *res.CumulativeReturn, 1e-12)
}
