package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHerfindahlIndex(t *testing.T) {
	assert.Equal(t, 1.0, HerfindahlIndex([]float64{1.0}))
	assert.InDelta(t, 0.25, HerfindahlIndex([]float64{0.25, 0.25, 0.25, 0.25}), 1e-12)
}

func TestWeightedAverage(t *testing.T) {
	avg := WeightedAverage([]float64{10, 2}, []float64{0.5, 0.5})
	require.NotNil(t, avg)
	assert.Equal(t, 6.0, *avg)

	assert.Nil(t, WeightedAverage([]float64{10}, []float64{0}))
}

func TestFutureValue(t *testing.T) {
	assert.Equal(t, 12000.0, FutureValue(0, 0, 12, 1000))
	assert.InDelta(t, 1000*1.01*1.01+100*1.01+100, FutureValue(1000, 0.01, 2, 100), 1e-9)
}

func TestRequiredContribution(t *testing.T) {
	c := RequiredContribution(12000, 0, 0, 12)
	require.NotNil(t, c)
	assert.Equal(t, 1000.0, *c)

	c = RequiredContribution(50000, 10000, 0.005, 120)
	require.NotNil(t, c)
	assert.InDelta(t, 50000, FutureValue(10000, 0.005, 120, *c), 1e-6)

	c = RequiredContribution(100, 1000, 0.01, 12)
	require.NotNil(t, c)
	assert.Equal(t, 0.0, *c)

	assert.Nil(t, RequiredContribution(100, 0, 0.01, 0))
}
