// Package domain provides the value types, collaborator interfaces and error
// taxonomy shared by the analytics engine and its adapters.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the sampling frequency of a price or return series
type Frequency string

const (
	// FrequencyDaily samples business days (252 periods per year)
	FrequencyDaily Frequency = "daily"
	// FrequencyMonthly samples month ends (12 periods per year)
	FrequencyMonthly Frequency = "monthly"
)

// PeriodsPerYear returns the annualization factor for the frequency.
func (f Frequency) PeriodsPerYear() int {
	if f == FrequencyMonthly {
		return 12
	}
	return 252
}

// Valid reports whether f is a supported frequency.
func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyMonthly
}

// PricePoint is one observed price of an instrument
type PricePoint struct {
	InstrumentID string    `json:"instrument_id" msgpack:"instrument_id"`
	Time         time.Time `json:"time" msgpack:"time"`
	Price        float64   `json:"price" msgpack:"price"`
}

// PriceSeries is an ordered, gap-free price series for one instrument
type PriceSeries struct {
	InstrumentID string       `json:"instrument_id" msgpack:"instrument_id"`
	Frequency    Frequency    `json:"frequency" msgpack:"frequency"`
	Points       []PricePoint `json:"points" msgpack:"points"`
}

// Len returns the number of points
func (s PriceSeries) Len() int { return len(s.Points) }

// Prices returns the price column
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Times returns the timestamp column
func (s PriceSeries) Times() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Time
	}
	return out
}

// TransactionType enumerates recorded portfolio events
type TransactionType string

const (
	TransactionBuy        TransactionType = "BUY"
	TransactionSell       TransactionType = "SELL"
	TransactionDividend   TransactionType = "DIVIDEND"
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionBuy, TransactionSell, TransactionDividend, TransactionDeposit, TransactionWithdrawal:
		return true
	}
	return false
}

// Transaction is an immutable portfolio event.
// For cash-only types (DIVIDEND, DEPOSIT, WITHDRAWAL) Quantity is unused and
// UnitPrice carries the cash amount.
type Transaction struct {
	ID           string          `json:"id"`
	PortfolioID  string          `json:"portfolio_id"`
	InstrumentID string          `json:"instrument_id"`
	Time         time.Time       `json:"time"`
	Type         TransactionType `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// Validate checks the type and quantity rules of a transaction
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, t.Type)
	}
	if t.Time.IsZero() {
		return fmt.Errorf("%w: %s %s has no timestamp", ErrInvalidTransaction, t.Type, t.InstrumentID)
	}
	if t.IsTrade() && !t.Quantity.IsPositive() {
		return fmt.Errorf("%w: %s %s quantity must be > 0", ErrInvalidTransaction, t.Type, t.InstrumentID)
	}
	if t.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: %s %s has a negative price", ErrInvalidTransaction, t.Type, t.InstrumentID)
	}
	return nil
}

// IsTrade reports whether the transaction moves units (BUY or SELL).
func (t Transaction) IsTrade() bool {
	return t.Type == TransactionBuy || t.Type == TransactionSell
}

// Amount is the cash value of the transaction: quantity × unit price for
// trades, the cash amount otherwise.
func (t Transaction) Amount() decimal.Decimal {
	if t.IsTrade() {
		return t.Quantity.Mul(t.UnitPrice)
	}
	return t.UnitPrice
}

// UnitDelta is the signed change in held units.
func (t Transaction) UnitDelta() decimal.Decimal {
	switch t.Type {
	case TransactionBuy:
		return t.Quantity
	case TransactionSell:
		return t.Quantity.Neg()
	}
	return decimal.Zero
}

// ReturnPoint is the return of the period ending at Time.
// Skipped marks a period whose start value was zero; its Return is meaningless.
type ReturnPoint struct {
	Time    time.Time `json:"time"`
	Return  float64   `json:"return"`
	Skipped bool      `json:"skipped,omitempty"`
}

// ReturnSeries is an ordered sequence of periodic returns for one instrument
// or an aggregated portfolio
type ReturnSeries struct {
	InstrumentID string        `json:"instrument_id"`
	Frequency    Frequency     `json:"frequency"`
	Points       []ReturnPoint `json:"points"`
}

// Values returns the usable (non-skipped) returns in order
func (s ReturnSeries) Values() []float64 {
	out := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		if !p.Skipped {
			out = append(out, p.Return)
		}
	}
	return out
}

// Len counts the usable returns
func (s ReturnSeries) Len() int {
	n := 0
	for _, p := range s.Points {
		if !p.Skipped {
			n++
		}
	}
	return n
}

// Times returns the period end timestamps of every point, skipped ones included
func (s ReturnSeries) Times() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Time
	}
	return out
}

// ValuePoint is a portfolio valuation at a point in time
type ValuePoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// DateRange is a closed [Start, End] interval
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func (r DateRange) String() string {
	return r.Start.Format("2006-01-02") + ".." + r.End.Format("2006-01-02")
}

// CheckAligned fails with a SeriesAlignmentError unless s and o carry identical
// period timestamps.
func (s ReturnSeries) CheckAligned(o ReturnSeries) error {
	if len(s.Points) != len(o.Points) {
		return &SeriesAlignmentError{Left: s.InstrumentID, Right: o.InstrumentID, Index: -1, Reason: "length differs"}
	}
	for i := range s.Points {
		if !s.Points[i].Time.Equal(o.Points[i].Time) {
			return &SeriesAlignmentError{
				Left: s.InstrumentID, Right: o.InstrumentID, Index: i,
				Reason: s.Points[i].Time.Format(time.RFC3339) + " != " + o.Points[i].Time.Format(time.RFC3339),
			}
		}
	}
	return nil
}

// CheckAllAligned verifies that every series shares the first one's timestamps.
func CheckAllAligned(series []ReturnSeries) error {
	for i := 1; i < len(series); i++ {
		if err := series[0].CheckAligned(series[i]); err != nil {
			return err
		}
	}
	return nil
}
