package risk

import (
	"sort"
	"time"

	"github.com/aristath/horizon/internal/domain"
)

// Exposure breaks portfolio weight down by asset class and equity sector
type Exposure struct {
	ByAssetClass map[domain.AssetClass]float64 `json:"by_asset_class"`
	BySector     map[string]float64            `json:"by_sector"`
	// Unclassified is the weight of instruments missing from the catalog
	Unclassified float64 `json:"unclassified"`
	// BondMaturityYears is the bond-weighted average remaining maturity
	BondMaturityYears *float64 `json:"bond_maturity_years"`
}

// CalculateExposure aggregates weights by instrument metadata as of asOf.
func CalculateExposure(weights map[string]float64, instruments map[string]domain.InstrumentInfo, asOf time.Time) Exposure {
	exp := Exposure{
		ByAssetClass: make(map[domain.AssetClass]float64),
		BySector:     make(map[string]float64),
	}

	var bondWeight, bondYears float64
	for _, id := range sortedKeys(weights) {
		w := weights[id]
		info, ok := instruments[id]
		if !ok || info.Instrument == nil {
			exp.Unclassified += w
			continue
		}

		exp.ByAssetClass[domain.ClassOf(info.Instrument)] += w
		switch inst := info.Instrument.(type) {
		case domain.Equity:
			sector := inst.Sector
			if sector == "" {
				sector = "Unknown"
			}
			exp.BySector[sector] += w
		case domain.Bond:
			bondWeight += w
			bondYears += w * inst.YearsToMaturity(asOf)
		}
	}

	if bondWeight > 0 {
		avg := bondYears / bondWeight
		exp.BondMaturityYears = &avg
	}
	return exp
}

// LiquidityTags resolves the liquidity tag of every weighted instrument from the
// catalog. Instruments missing from the catalog are left out so that scoring
// reports them instead of assuming a value.
func LiquidityTags(weights map[string]float64, instruments map[string]domain.InstrumentInfo) map[string]float64 {
	tags := make(map[string]float64, len(weights))
	for id := range weights {
		if info, ok := instruments[id]; ok && info.Instrument != nil {
			tags[id] = info.LiquidityTag()
		}
	}
	return tags
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
