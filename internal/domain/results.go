package domain

import (
	"fmt"
	"time"
)

// PerformanceResult bundles the performance statistics of one return series
// together with the parameters that produced them. Nil pointers are undefined
// statistics and serialize as JSON null.
type PerformanceResult struct {
	AnnualizedReturn *float64 `json:"annualized_return"`
	CumulativeReturn *float64 `json:"cumulative_return"`
	Volatility       *float64 `json:"volatility"`
	SharpeRatio      *float64 `json:"sharpe_ratio"`
	SortinoRatio     *float64 `json:"sortino_ratio"`
	MaxDrawdown      *float64 `json:"max_drawdown"`
	Beta             *float64 `json:"beta"`

	DrawdownPeak   *time.Time `json:"drawdown_peak,omitempty"`
	DrawdownTrough *time.Time `json:"drawdown_trough,omitempty"`

	RiskFreeRate   float64 `json:"risk_free_rate"`
	BenchmarkID    string  `json:"benchmark_id"`
	PeriodsPerYear int     `json:"periods_per_year"`
	SampleSize     int     `json:"sample_size"`
	LowConfidence  bool    `json:"low_confidence"`
}

// Record flattens the result into a single-level record for presentation.
func (r PerformanceResult) Record() map[string]any {
	return map[string]any{
		"annualized_return": r.AnnualizedReturn,
		"cumulative_return": r.CumulativeReturn,
		"volatility":        r.Volatility,
		"sharpe_ratio":      r.SharpeRatio,
		"sortino_ratio":     r.SortinoRatio,
		"max_drawdown":      r.MaxDrawdown,
		"beta":              r.Beta,
		"risk_free_rate":    r.RiskFreeRate,
		"benchmark_id":      r.BenchmarkID,
		"periods_per_year":  r.PeriodsPerYear,
		"sample_size":       r.SampleSize,
		"low_confidence":    r.LowConfidence,
	}
}

// RiskResult holds the cross-asset risk decomposition of a portfolio.
// Matrix rows and columns follow InstrumentIDs.
type RiskResult struct {
	InstrumentIDs       []string    `json:"instrument_ids"`
	Covariance          [][]float64 `json:"covariance"`
	Correlation         [][]float64 `json:"correlation"`
	Concentration       float64     `json:"concentration"`
	MeanReturn          float64     `json:"mean_return"`
	PortfolioVolatility float64     `json:"portfolio_volatility"`
	PortfolioValue      float64     `json:"portfolio_value"`
	Confidence          float64     `json:"confidence"`
	HorizonPeriods      int         `json:"horizon_periods"`
	// ValueAtRisk is the value change at the confidence threshold; negative is a loss
	ValueAtRisk      float64  `json:"value_at_risk"`
	HistoricalVaR    *float64 `json:"historical_var"`
	CVaR             *float64 `json:"cvar"`
	LiquidityScore   *float64 `json:"liquidity_score"`
	OverallRiskScore *float64 `json:"overall_risk_score"`
	// HighCorrelations lists pairs whose absolute correlation reaches the threshold
	HighCorrelations []CorrelationPair `json:"high_correlations"`
}

// CorrelationPair is the correlation between two instruments
type CorrelationPair struct {
	Left        string  `json:"left"`
	Right       string  `json:"right"`
	Correlation float64 `json:"correlation"`
}

// Record flattens the scalars and the upper triangle of the correlation matrix.
func (r RiskResult) Record() map[string]any {
	rec := map[string]any{
		"concentration":        r.Concentration,
		"mean_return":          r.MeanReturn,
		"portfolio_volatility": r.PortfolioVolatility,
		"portfolio_value":      r.PortfolioValue,
		"confidence":           r.Confidence,
		"horizon_periods":      r.HorizonPeriods,
		"value_at_risk":        r.ValueAtRisk,
		"historical_var":       r.HistoricalVaR,
		"cvar":                 r.CVaR,
		"liquidity_score":      r.LiquidityScore,
		"overall_risk_score":   r.OverallRiskScore,
	}
	for i, a := range r.InstrumentIDs {
		for j := i + 1; j < len(r.InstrumentIDs); j++ {
			rec[fmt.Sprintf("correlation.%s.%s", a, r.InstrumentIDs[j])] = r.Correlation[i][j]
		}
	}
	return rec
}

// PercentileValue is a terminal-value percentile
type PercentileValue struct {
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
}

// Band holds the percentiles of all trial values at one period
type Band struct {
	Period int               `json:"period"`
	Values []PercentileValue `json:"values"`
}

// SimulationResult is the outcome of a Monte Carlo projection
type SimulationResult struct {
	Model              string            `json:"model"`
	Trials             int               `json:"trials"`
	Horizon            int               `json:"horizon"`
	Seed               int64             `json:"seed"`
	Target             float64           `json:"target"`
	SuccessProbability float64           `json:"success_probability"`
	Mean               float64           `json:"mean"`
	StdDev             float64           `json:"std_dev"`
	Percentiles        []PercentileValue `json:"percentiles"`
	TerminalValues     []float64         `json:"terminal_values,omitempty"`
	Paths              [][]float64       `json:"paths,omitempty"`
	Bands              []Band            `json:"bands,omitempty"`
}

// Percentile returns the stored value for p.
func (r SimulationResult) Percentile(p float64) (float64, bool) {
	for _, pv := range r.Percentiles {
		if pv.Percentile == p {
			return pv.Value, true
		}
	}
	return 0, false
}

// Record flattens the scalar statistics and terminal percentiles.
func (r SimulationResult) Record() map[string]any {
	rec := map[string]any{
		"model":               r.Model,
		"trials":              r.Trials,
		"horizon":             r.Horizon,
		"seed":                r.Seed,
		"target":              r.Target,
		"success_probability": r.SuccessProbability,
		"mean":                r.Mean,
		"std_dev":             r.StdDev,
	}
	for _, pv := range r.Percentiles {
		rec[fmt.Sprintf("p%g", pv.Percentile)] = pv.Value
	}
	return rec
}
