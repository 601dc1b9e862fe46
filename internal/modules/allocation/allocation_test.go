package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/horizon/internal/domain"
)

func TestRecommendedAllocation(t *testing.T) {
	tests := []struct {
		name      string
		tolerance float64
		want      map[string]float64
	}{
		{"conservative", 0.1, map[string]float64{"bond": 0.60, "equity": 0.30, "cash": 0.10}},
		{"balanced lower bound", 0.3, map[string]float64{"equity": 0.60, "bond": 0.30, "etf": 0.05, "cash": 0.05}},
		{"growth", 0.7, map[string]float64{"equity": 0.80, "etf": 0.15, "cash": 0.05}},
		{"maximum", 1.0, map[string]float64{"equity": 0.80, "etf": 0.15, "cash": 0.05}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RecommendedAllocation(tt.tolerance)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := RecommendedAllocation(1.5)
	assert.Error(t, err)
	_, err = RecommendedAllocation(-0.1)
	assert.Error(t, err)
}

func TestRebalance(t *testing.T) {
	current := map[string]float64{"equity": 0.70, "bond": 0.27, "crypto": 0.03}
	target := map[string]float64{"equity": 0.60, "bond": 0.30, "cash": 0.10}

	trades := Rebalance(current, target, 100000, DefaultTolerance)

	assert.Equal(t, []Trade{
		{Name: "cash", Amount: 10000},
		{Name: "equity", Amount: -10000},
	}, trades)
}

func TestRebalance_WithinTolerance(t *testing.T) {
	trades := Rebalance(map[string]float64{"equity": 0.62, "bond": 0.38}, map[string]float64{"equity": 0.60, "bond": 0.40}, 5000, DefaultTolerance)
	assert.Empty(t, trades)
	assert.NotNil(t, trades)
}

func TestAnalyze(t *testing.T) {
	instruments := map[string]domain.InstrumentInfo{
		"AAPL": {ID: "AAPL", Instrument: domain.Equity{Sector: "Technology"}},
		"VWCE": {ID: "VWCE", Instrument: domain.Fund{Kind: domain.FundETF}},
		"UST":  {ID: "UST", Instrument: domain.Bond{}},
	}
	weights := map[string]float64{"AAPL": 0.5, "VWCE": 0.2, "UST": 0.2, "OTHER": 0.1}

	analysis, err := Analyze(weights, instruments, 20000, 0.5)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, analysis.Current["equity"], 1e-12)
	assert.InDelta(t, 0.2, analysis.Current["etf"], 1e-12)
	assert.InDelta(t, 0.1, analysis.Current[Unclassified], 1e-12)
	assert.True(t, analysis.RebalancingNeeded)

	names := make([]string, len(analysis.Groups))
	for i, g := range analysis.Groups {
		names[i] = g.Name
	}
	assert.Equal(t, []string{"bond", "cash", "equity", "etf", "unclassified"}, names)
	assert.Equal(t, 2000.0, analysis.Groups[4].CurrentValue)

	_, err = Analyze(map[string]float64{}, instruments, 0, 0.5)
	assert.ErrorIs(t, err, domain.ErrEmptyPortfolio)
}
