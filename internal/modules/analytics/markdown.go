package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/internal/modules/allocation"
)

// Markdown renders the report as a markdown document for terminal display.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Portfolio %s\n\n", r.PortfolioID)
	fmt.Fprintf(&b, "Range **%s** (%s), value **%.2f**\n\n", r.Range, r.Frequency, r.PortfolioValue)

	b.WriteString("## Performance\n\n| Metric | Value |\n|---|---|\n")
	if p := r.Performance; p != nil {
		row(&b, "Cumulative return", pct(p.CumulativeReturn))
		row(&b, "Annualized return", pct(p.AnnualizedReturn))
		row(&b, "Volatility", pct(p.Volatility))
		row(&b, "Sharpe ratio", num(p.SharpeRatio))
		row(&b, "Sortino ratio", num(p.SortinoRatio))
		row(&b, "Max drawdown", pct(p.MaxDrawdown))
		row(&b, "Beta", num(p.Beta))
		row(&b, "Sample size", fmt.Sprintf("%d", p.SampleSize))
		if p.LowConfidence {
			b.WriteString("\n> Less than one year of data: annualized figures are low confidence.\n")
		}
	}

	if rz := r.Realized; rz != nil {
		b.WriteString("\n## Realized (ledger)\n\n| Metric | Value |\n|---|---|\n")
		row(&b, "Cumulative return", pct(rz.CumulativeReturn))
		if p := rz.Performance; p != nil {
			row(&b, "Annualized return", pct(p.AnnualizedReturn))
			row(&b, "Volatility", pct(p.Volatility))
			row(&b, "Max drawdown", pct(p.MaxDrawdown))
		}
	}

	if rk := r.Risk; rk != nil {
		b.WriteString("\n## Risk\n\n| Metric | Value |\n|---|---|\n")
		row(&b, "Concentration (HHI)", fmt.Sprintf("%.4f", rk.Concentration))
		row(&b, "Volatility (per period)", fmt.Sprintf("%.4f", rk.PortfolioVolatility))
		row(&b, fmt.Sprintf("VaR %.0f%%", rk.Confidence*100), fmt.Sprintf("%.2f", rk.ValueAtRisk))
		row(&b, "Historical VaR", pct(rk.HistoricalVaR))
		row(&b, "CVaR", pct(rk.CVaR))
		row(&b, "Liquidity score", num(rk.LiquidityScore))
		row(&b, "Overall risk score", num(rk.OverallRiskScore))
		for _, pair := range rk.HighCorrelations {
			fmt.Fprintf(&b, "\n- High correlation %s / %s: %.2f", pair.Left, pair.Right, pair.Correlation)
		}
		if len(rk.HighCorrelations) > 0 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n## Holdings\n\n| Instrument | Weight | Position return |\n|---|---|---|\n")
	ids := make([]string, 0, len(r.Weights))
	for id := range r.Weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		position := "-"
		if p, ok := r.Positions[id]; ok && p != nil {
			position = pct(p.CumulativeReturn)
		}
		fmt.Fprintf(&b, "| %s | %.2f%% | %s |\n", id, r.Weights[id]*100, position)
	}
	return b.String()
}

// SimulationMarkdown renders a simulation result as a markdown document.
func SimulationMarkdown(res *domain.SimulationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Simulation (%s)\n\n", res.Model)
	fmt.Fprintf(&b, "%d trials over %d periods, seed %d\n\n", res.Trials, res.Horizon, res.Seed)
	fmt.Fprintf(&b, "Probability of reaching **%.2f**: **%.1f%%**\n\n", res.Target, res.SuccessProbability*100)

	b.WriteString("| Percentile | Terminal value |\n|---|---|\n")
	for _, pv := range res.Percentiles {
		fmt.Fprintf(&b, "| p%g | %.2f |\n", pv.Percentile, pv.Value)
	}
	fmt.Fprintf(&b, "\nMean %.2f, standard deviation %.2f\n", res.Mean, res.StdDev)
	return b.String()
}

// AllocationMarkdown renders an allocation review.
func AllocationMarkdown(a *allocation.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Allocation (risk tolerance %.2f)\n\n", a.RiskTolerance)

	b.WriteString("| Group | Current | Target | Deviation |\n|---|---|---|---|\n")
	for _, g := range a.Groups {
		fmt.Fprintf(&b, "| %s | %.2f%% | %.2f%% | %+.2f%% |\n", g.Name, g.CurrentPct, g.TargetPct, g.Deviation)
	}

	if !a.RebalancingNeeded {
		b.WriteString("\nNo rebalancing needed.\n")
		return b.String()
	}
	b.WriteString("\n## Suggested trades\n\n| Group | Amount |\n|---|---|\n")
	for _, t := range a.Trades {
		fmt.Fprintf(&b, "| %s | %+.2f |\n", t.Name, t.Amount)
	}
	return b.String()
}

// SavingsMarkdown renders a savings plan.
func SavingsMarkdown(p *allocation.SavingsPlan) string {
	period := "year"
	if p.Monthly {
		period = "month"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Savings plan\n\nSave **%.2f** per %s for %d years to reach **%.2f**.\n\n", p.Contribution, period, p.Years, p.TargetAmount)
	b.WriteString("| | |\n|---|---|\n")
	row(&b, "Starting value", fmt.Sprintf("%.2f", p.PresentValue))
	row(&b, "Annual return", fmt.Sprintf("%.2f%%", p.AnnualReturn*100))
	row(&b, "Contributions", fmt.Sprintf("%d", p.Periods))
	row(&b, "Total invested", fmt.Sprintf("%.2f", p.TotalInvested))
	return b.String()
}

func row(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", name, value)
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

func num(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
