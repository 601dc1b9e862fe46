// Package allocation compares a portfolio's allocation with a target and
// suggests rebalancing trades.
package allocation

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/horizon/internal/domain"
)

// DefaultTolerance is the weight drift tolerated before a trade is suggested
const DefaultTolerance = 0.05

// Unclassified groups weight whose instrument is missing from the catalog
const Unclassified = "unclassified"

// GroupAllocation is the current and target weight of one allocation group
type GroupAllocation struct {
	Name         string  `json:"name"`
	TargetPct    float64 `json:"target_pct"`
	CurrentPct   float64 `json:"current_pct"`
	CurrentValue float64 `json:"current_value"`
	Deviation    float64 `json:"deviation"`
}

// Trade is a suggested change in value terms; positive buys, negative sells
type Trade struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Analysis is the allocation review of a portfolio
type Analysis struct {
	RiskTolerance     float64            `json:"risk_tolerance"`
	Current           map[string]float64 `json:"current_allocation"`
	Recommended       map[string]float64 `json:"recommended_allocation"`
	Groups            []GroupAllocation  `json:"groups"`
	RebalancingNeeded bool               `json:"rebalancing_needed"`
	Trades            []Trade            `json:"rebalancing_trades"`
}

// CurrentAllocation sums instrument weights by instrument kind.
func CurrentAllocation(weights map[string]float64, instruments map[string]domain.InstrumentInfo) map[string]float64 {
	out := make(map[string]float64)
	for id, w := range weights {
		info, ok := instruments[id]
		if !ok || info.Instrument == nil {
			out[Unclassified] += w
			continue
		}
		out[domain.KindOf(info.Instrument)] += w
	}
	return out
}

// RecommendedAllocation returns target weights by instrument kind for a risk
// tolerance in [0, 1] (0 conservative, 1 aggressive).
func RecommendedAllocation(riskTolerance float64) (map[string]float64, error) {
	if math.IsNaN(riskTolerance) || riskTolerance < 0 || riskTolerance > 1 {
		return nil, fmt.Errorf("risk tolerance %v outside [0, 1]", riskTolerance)
	}
	switch {
	case riskTolerance < 0.3:
		return map[string]float64{"bond": 0.60, "equity": 0.30, "cash": 0.10}, nil
	case riskTolerance < 0.7:
		return map[string]float64{"equity": 0.60, "bond": 0.30, "etf": 0.05, "cash": 0.05}, nil
	default:
		return map[string]float64{"equity": 0.80, "etf": 0.15, "cash": 0.05}, nil
	}
}

// Rebalance suggests a trade for every group whose weight drifts from its
// target by more than tolerance. Groups held but absent from the target have a
// target of 0. Trades are sorted by group name.
func Rebalance(current, target map[string]float64, totalValue, tolerance float64) []Trade {
	trades := make([]Trade, 0)
	for _, name := range groupNames(current, target) {
		diff := target[name] - current[name]
		if math.Abs(diff) > tolerance {
			trades = append(trades, Trade{Name: name, Amount: round(diff*totalValue, 2)})
		}
	}
	return trades
}

// Analyze reviews weights against the allocation recommended for riskTolerance.
func Analyze(weights map[string]float64, instruments map[string]domain.InstrumentInfo, totalValue, riskTolerance float64) (*Analysis, error) {
	if len(weights) == 0 {
		return nil, &domain.EmptyPortfolioError{}
	}
	recommended, err := RecommendedAllocation(riskTolerance)
	if err != nil {
		return nil, err
	}

	current := CurrentAllocation(weights, instruments)
	trades := Rebalance(current, recommended, totalValue, DefaultTolerance)
	return &Analysis{
		RiskTolerance:     riskTolerance,
		Current:           current,
		Recommended:       recommended,
		Groups:            buildGroupAllocations(current, recommended, totalValue),
		RebalancingNeeded: len(trades) > 0,
		Trades:            trades,
	}, nil
}

// buildGroupAllocations creates GroupAllocation structs from current and target weights
func buildGroupAllocations(current, target map[string]float64, totalValue float64) []GroupAllocation {
	names := groupNames(current, target)
	allocations := make([]GroupAllocation, 0, len(names))
	for _, name := range names {
		allocations = append(allocations, GroupAllocation{
			Name:         name,
			TargetPct:    target[name],
			CurrentPct:   round(current[name], 4),
			CurrentValue: round(current[name]*totalValue, 2),
			Deviation:    round(current[name]-target[name], 4),
		})
	}
	return allocations
}

// groupNames collects the names of both maps in sorted order
func groupNames(a, b map[string]float64) []string {
	seen := make(map[string]bool)
	for name := range a {
		seen[name] = true
	}
	for name := range b {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// round rounds a float64 to n decimal places
func round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}
