package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/horizon/internal/domain"
)

func TestCalculateExposure(t *testing.T) {
	asOf := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	instruments := map[string]domain.InstrumentInfo{
		"AAPL": {ID: "AAPL", Instrument: domain.Equity{Sector: "Technology"}},
		"XOM":  {ID: "XOM", Instrument: domain.Equity{Sector: "Energy"}},
		"UST":  {ID: "UST", Instrument: domain.Bond{Maturity: asOf.AddDate(10, 0, 0)}},
		"BUND": {ID: "BUND", Instrument: domain.Bond{Maturity: asOf.AddDate(2, 0, 0)}},
	}
	weights := map[string]float64{"AAPL": 0.3, "XOM": 0.2, "UST": 0.2, "BUND": 0.2, "MYSTERY": 0.1}

	exp := CalculateExposure(weights, instruments, asOf)

	assert.InDelta(t, 0.5, exp.ByAssetClass[domain.AssetClassEquity], 1e-12)
	assert.InDelta(t, 0.4, exp.ByAssetClass[domain.AssetClassFixedIncome], 1e-12)
	assert.InDelta(t, 0.3, exp.BySector["Technology"], 1e-12)
	assert.InDelta(t, 0.1, exp.Unclassified, 1e-12)
	require.NotNil(t, exp.BondMaturityYears)
	assert.InDelta(t, 6.0, *exp.BondMaturityYears, 0.01)
}

func TestLiquidityTags(t *testing.T) {
	override := 1.0
	instruments := map[string]domain.InstrumentInfo{
		"AAPL":  {ID: "AAPL", Instrument: domain.Equity{}},
		"HOUSE": {ID: "HOUSE", Instrument: domain.RealAsset{}, Liquidity: &override},
	}

	tags := LiquidityTags(map[string]float64{"AAPL": 0.5, "HOUSE": 0.4, "GONE": 0.1}, instruments)
	assert.Equal(t, map[string]float64{"AAPL": 9, "HOUSE": 1}, tags)

	_, err := LiquidityScore(map[string]float64{"AAPL": 0.5, "HOUSE": 0.4, "GONE": 0.1}, tags)
	assert.ErrorIs(t, err, domain.ErrMissingLiquidityTag)
}
