// Package returns derives periodic and time-weighted returns from normalized
// price series and transaction cash flows.
package returns

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/pkg/formulas"
)

// Periodic returns the simple return between consecutive prices.
// A series with fewer than two points yields an empty ReturnSeries.
func Periodic(series domain.PriceSeries) domain.ReturnSeries {
	out := domain.ReturnSeries{InstrumentID: series.InstrumentID, Frequency: series.Frequency}
	if series.Len() < 2 {
		return out
	}

	out.Points = make([]domain.ReturnPoint, 0, series.Len()-1)
	for i := 1; i < series.Len(); i++ {
		prev, cur := series.Points[i-1], series.Points[i]
		if prev.Price == 0 {
			out.Points = append(out.Points, domain.ReturnPoint{Time: cur.Time, Skipped: true})
			continue
		}
		out.Points = append(out.Points, domain.ReturnPoint{Time: cur.Time, Return: cur.Price/prev.Price - 1})
	}
	return out
}

// TimeWeighted computes the time-weighted return series of one position.
//
// For every period (t-1, t]:
//
//	start     = units(t-1) × price(t-1)
//	end       = units(t) × price(t) + dividends paid in (t-1, t]
//	cash_flow = BUY amounts − SELL amounts in (t-1, t]
//	r         = (end − cash_flow) / start − 1
//
// Trades are treated as happening at period end, so a purchase never shows up as
// performance. Transactions at or before the first price seed the opening units.
// A period with zero start value is marked Skipped. DEPOSIT and WITHDRAWAL move
// cash, not units, and are handled by PortfolioTimeWeighted.
func TimeWeighted(series domain.PriceSeries, txs []domain.Transaction) (domain.ReturnSeries, error) {
	out := domain.ReturnSeries{InstrumentID: series.InstrumentID, Frequency: series.Frequency}
	if err := checkTransactions(series.InstrumentID, txs); err != nil {
		return out, err
	}
	if series.Len() < 2 {
		return out, nil
	}

	units := decimal.Zero
	next := 0
	first := series.Points[0].Time
	for next < len(txs) && !txs[next].Time.After(first) {
		units = units.Add(txs[next].UnitDelta())
		next++
	}

	out.Points = make([]domain.ReturnPoint, 0, series.Len()-1)
	for i := 1; i < series.Len(); i++ {
		prev, cur := series.Points[i-1], series.Points[i]
		startValue := units.InexactFloat64() * prev.Price

		flow, income := decimal.Zero, decimal.Zero
		for next < len(txs) && !txs[next].Time.After(cur.Time) {
			tx := txs[next]
			switch tx.Type {
			case domain.TransactionBuy:
				flow = flow.Add(tx.Amount())
			case domain.TransactionSell:
				flow = flow.Sub(tx.Amount())
			case domain.TransactionDividend:
				income = income.Add(tx.Amount())
			}
			units = units.Add(tx.UnitDelta())
			next++
		}

		if startValue == 0 {
			out.Points = append(out.Points, domain.ReturnPoint{Time: cur.Time, Skipped: true})
			continue
		}
		endValue := units.InexactFloat64()*cur.Price + income.InexactFloat64()
		r := (endValue-flow.InexactFloat64())/startValue - 1
		out.Points = append(out.Points, domain.ReturnPoint{Time: cur.Time, Return: r})
	}
	return out, nil
}

// PortfolioTimeWeighted computes time-weighted returns over total portfolio
// valuations. DEPOSIT and WITHDRAWAL transactions are the external flows; all
// other transactions are internal to the portfolio and ignored.
func PortfolioTimeWeighted(portfolioID string, freq domain.Frequency, values []domain.ValuePoint, txs []domain.Transaction) (domain.ReturnSeries, error) {
	out := domain.ReturnSeries{InstrumentID: portfolioID, Frequency: freq}
	for i := 1; i < len(values); i++ {
		if !values[i].Time.After(values[i-1].Time) {
			return out, fmt.Errorf("%w: valuation %d of %s", domain.ErrUnorderedSeries, i, portfolioID)
		}
	}
	if len(values) < 2 {
		return out, nil
	}

	next := 0
	for next < len(txs) && !txs[next].Time.After(values[0].Time) {
		next++
	}

	out.Points = make([]domain.ReturnPoint, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		flow := decimal.Zero
		for next < len(txs) && !txs[next].Time.After(values[i].Time) {
			switch txs[next].Type {
			case domain.TransactionDeposit:
				flow = flow.Add(txs[next].Amount())
			case domain.TransactionWithdrawal:
				flow = flow.Sub(txs[next].Amount())
			}
			next++
		}

		start := values[i-1].Value
		if start == 0 {
			out.Points = append(out.Points, domain.ReturnPoint{Time: values[i].Time, Skipped: true})
			continue
		}
		r := (values[i].Value-flow.InexactFloat64())/start - 1
		out.Points = append(out.Points, domain.ReturnPoint{Time: values[i].Time, Return: r})
	}
	return out, nil
}

// Chain geometrically links the usable returns: ∏(1+r_i) − 1.
// ok is false for a series without usable returns; descriptive totals never fail.
func Chain(rs domain.ReturnSeries) (total float64, ok bool) {
	values := rs.Values()
	if len(values) == 0 {
		return 0, false
	}
	return formulas.CumulativeReturn(values), true
}

// Require fails with an InsufficientDataError when rs has fewer than n usable returns.
func Require(op string, rs domain.ReturnSeries, n int) error {
	if got := rs.Len(); got < n {
		return &domain.InsufficientDataError{Op: op, Required: n, Got: got}
	}
	return nil
}

// Weighted aggregates aligned instrument return series into a portfolio series
// using fixed weights. A period skipped by any weighted instrument is skipped in
// the aggregate.
func Weighted(portfolioID string, series []domain.ReturnSeries, weights map[string]float64) (domain.ReturnSeries, error) {
	out := domain.ReturnSeries{InstrumentID: portfolioID}
	if len(series) == 0 {
		return out, nil
	}
	out.Frequency = series[0].Frequency

	ref := series[0]
	for _, s := range series[1:] {
		if len(s.Points) != len(ref.Points) {
			return out, &domain.SeriesAlignmentError{Left: ref.InstrumentID, Right: s.InstrumentID, Index: -1, Reason: "length differs"}
		}
	}
	for _, s := range series {
		if _, ok := weights[s.InstrumentID]; !ok {
			return out, fmt.Errorf("%w: no weight for %s", domain.ErrInvalidWeights, s.InstrumentID)
		}
	}

	out.Points = make([]domain.ReturnPoint, len(ref.Points))
	for i := range ref.Points {
		t := ref.Points[i].Time
		point := domain.ReturnPoint{Time: t}
		for _, s := range series {
			p := s.Points[i]
			if !p.Time.Equal(t) {
				return out, &domain.SeriesAlignmentError{
					Left: ref.InstrumentID, Right: s.InstrumentID, Index: i,
					Reason: p.Time.Format(time.RFC3339) + " != " + t.Format(time.RFC3339),
				}
			}
			w := weights[s.InstrumentID]
			if p.Skipped && w != 0 {
				point.Skipped = true
				continue
			}
			point.Return += w * p.Return
		}
		if point.Skipped {
			point.Return = 0
		}
		out.Points[i] = point
	}
	return out, nil
}

// checkTransactions verifies that transactions belong to the instrument, are valid
// and are ordered by time.
func checkTransactions(instrumentID string, txs []domain.Transaction) error {
	for i, tx := range txs {
		if tx.InstrumentID != instrumentID {
			return &domain.SeriesAlignmentError{
				Left: instrumentID, Right: tx.InstrumentID, Index: i,
				Reason: "transaction belongs to another instrument",
			}
		}
		if err := tx.Validate(); err != nil {
			return err
		}
		if i > 0 && tx.Time.Before(txs[i-1].Time) {
			return fmt.Errorf("%w: transaction %d of %s precedes its predecessor", domain.ErrUnorderedSeries, i, instrumentID)
		}
	}
	return nil
}
