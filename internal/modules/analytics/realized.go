package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/internal/modules/performance"
	"github.com/aristath/horizon/internal/modules/prices"
	"github.com/aristath/horizon/internal/modules/returns"
)

// RealizedPerformance is the time-weighted performance of the portfolio as its
// ledger records it: positions and cash valued over the report timeline with
// external flows removed.
type RealizedPerformance struct {
	// CumulativeReturn is set whenever at least one usable return exists
	CumulativeReturn *float64 `json:"cumulative_return"`
	// Performance is nil with fewer than two usable returns
	Performance *domain.PerformanceResult `json:"performance"`
	Valuations  []domain.ValuePoint       `json:"valuations"`
	// CashTracked is false for ledgers without deposits or withdrawals. Trades
	// are then the external flows and cash is left out of the valuation.
	CashTracked bool `json:"cash_tracked"`
}

// realized values the ledger on the report timeline and runs portfolio-level
// TWR over it. Instruments traded during the range but no longer held are
// fetched as well; a failed fetch is partial data like any other.
func (f *Facade) realized(ctx context.Context, r *request, snap *snapshot, txs []domain.Transaction, opts performance.Options) (*RealizedPerformance, error) {
	timeline := snap.series[snap.ids[0]].Times()
	if len(timeline) == 0 {
		return nil, nil
	}

	marks := make(map[string]domain.PriceSeries, len(snap.series))
	for id, s := range snap.series {
		marks[id] = s
	}
	if extra := untracked(txs, marks, timeline[0]); len(extra) > 0 {
		results := f.fetcher.FetchAll(ctx, extra, r.rng, r.params.Frequency)
		if failed := prices.Failures(results); len(failed) > 0 {
			return nil, r.fail("fetch ledger prices", "", &domain.PartialDataError{Failed: failed, Total: len(extra)})
		}
		for _, res := range results {
			marks[res.InstrumentID] = res.Series
		}
	}

	book := newLedgerBook(txs, marks)
	values := make([]domain.ValuePoint, len(timeline))
	for i, t := range timeline {
		values[i] = domain.ValuePoint{Time: t, Value: book.valueAt(t)}
	}

	rs, err := returns.PortfolioTimeWeighted(r.portfolioID, r.params.Frequency, values, book.flows)
	if err != nil {
		return nil, r.fail("realized returns", "", err)
	}

	out := &RealizedPerformance{Valuations: values, CashTracked: book.cashTracked}
	if total, ok := returns.Chain(rs); ok {
		out.CumulativeReturn = &total
	}
	if err := returns.Require("realized returns", rs, 2); err != nil {
		f.log.Debug().Err(err).Str("portfolio", r.portfolioID).Msg("Realized performance limited to the cumulative return")
		return out, nil
	}

	opts.Start = timeline[0]
	out.Performance, err = performance.Calculate(rs, opts)
	if err != nil {
		return nil, r.fail("realized performance", "", err)
	}
	return out, nil
}

// untracked lists instruments with units somewhere in the range that have no
// price series yet.
func untracked(txs []domain.Transaction, marks map[string]domain.PriceSeries, from time.Time) []string {
	open := make(map[string]decimal.Decimal)
	need := make(map[string]bool)
	for _, tx := range txs {
		if !tx.IsTrade() {
			continue
		}
		if _, ok := marks[tx.InstrumentID]; ok {
			continue
		}
		if tx.Time.After(from) {
			need[tx.InstrumentID] = true
			continue
		}
		open[tx.InstrumentID] = open[tx.InstrumentID].Add(tx.UnitDelta())
	}
	for id, units := range open {
		if units.IsPositive() {
			need[id] = true
		}
	}

	ids := make([]string, 0, len(need))
	for id := range need {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ledgerBook replays transactions in time order and values the book at
// increasing instants.
type ledgerBook struct {
	txs         []domain.Transaction
	next        int
	marks       map[string]domain.PriceSeries
	units       map[string]decimal.Decimal
	tradePrice  map[string]float64
	cash        decimal.Decimal
	cashTracked bool
	// flows are the external flows as DEPOSIT and WITHDRAWAL transactions
	flows []domain.Transaction
}

func newLedgerBook(txs []domain.Transaction, marks map[string]domain.PriceSeries) *ledgerBook {
	ordered := make([]domain.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Time.Before(ordered[j].Time) })

	b := &ledgerBook{
		txs:        ordered,
		marks:      marks,
		units:      make(map[string]decimal.Decimal),
		tradePrice: make(map[string]float64),
	}
	for _, tx := range ordered {
		if tx.Type == domain.TransactionDeposit || tx.Type == domain.TransactionWithdrawal {
			b.cashTracked = true
			break
		}
	}

	for _, tx := range ordered {
		switch {
		case b.cashTracked:
			if tx.Type == domain.TransactionDeposit || tx.Type == domain.TransactionWithdrawal {
				b.flows = append(b.flows, tx)
			}
		case tx.Type == domain.TransactionBuy:
			b.flows = append(b.flows, flow(tx, domain.TransactionDeposit))
		case tx.Type == domain.TransactionSell, tx.Type == domain.TransactionDividend:
			b.flows = append(b.flows, flow(tx, domain.TransactionWithdrawal))
		}
	}
	return b
}

// flow restates a transaction's cash amount as an external flow
func flow(tx domain.Transaction, typ domain.TransactionType) domain.Transaction {
	return domain.Transaction{
		ID:          tx.ID,
		PortfolioID: tx.PortfolioID,
		Time:        tx.Time,
		Type:        typ,
		UnitPrice:   tx.Amount(),
	}
}

// valueAt applies every transaction up to t and returns the book value at t.
// Calls must use non-decreasing instants.
func (b *ledgerBook) valueAt(t time.Time) float64 {
	for b.next < len(b.txs) && !b.txs[b.next].Time.After(t) {
		b.apply(b.txs[b.next])
		b.next++
	}

	value := 0.0
	if b.cashTracked {
		value = b.cash.InexactFloat64()
	}
	for id, units := range b.units {
		if units.IsZero() {
			continue
		}
		value += units.InexactFloat64() * b.mark(id, t)
	}
	return value
}

func (b *ledgerBook) apply(tx domain.Transaction) {
	switch tx.Type {
	case domain.TransactionBuy:
		b.units[tx.InstrumentID] = b.units[tx.InstrumentID].Add(tx.Quantity)
		b.tradePrice[tx.InstrumentID] = tx.UnitPrice.InexactFloat64()
		b.cash = b.cash.Sub(tx.Amount())
	case domain.TransactionSell:
		b.units[tx.InstrumentID] = b.units[tx.InstrumentID].Sub(tx.Quantity)
		b.tradePrice[tx.InstrumentID] = tx.UnitPrice.InexactFloat64()
		b.cash = b.cash.Add(tx.Amount())
	case domain.TransactionDividend, domain.TransactionDeposit:
		b.cash = b.cash.Add(tx.Amount())
	case domain.TransactionWithdrawal:
		b.cash = b.cash.Sub(tx.Amount())
	}
}

// mark is the last market price on or before t, falling back to the last
// trade price when the series has no observation yet.
func (b *ledgerBook) mark(id string, t time.Time) float64 {
	points := b.marks[id].Points
	i := sort.Search(len(points), func(i int) bool { return points[i].Time.After(t) })
	if i > 0 {
		return points[i-1].Price
	}
	return b.tradePrice[id]
}
