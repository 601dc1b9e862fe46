package portfolio

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/aristath/horizon/internal/domain"
)

// Seed is a YAML document describing instruments, prices and the transaction
// history of one portfolio.
type Seed struct {
	Portfolio    string                 `yaml:"portfolio"`
	Instruments  []SeedInstrument       `yaml:"instruments"`
	Prices       map[string][]SeedPrice `yaml:"prices"`
	Transactions []SeedTransaction      `yaml:"transactions"`
}

// SeedInstrument is one catalog entry
type SeedInstrument struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Kind      string    `yaml:"kind"`
	Sector    string    `yaml:"sector"`
	Coupon    float64   `yaml:"coupon"`
	Maturity  time.Time `yaml:"maturity"`
	FaceValue float64   `yaml:"face_value"`
	Detail    string    `yaml:"detail"`
	Liquidity *float64  `yaml:"liquidity"`
}

// SeedPrice is one dated price
type SeedPrice struct {
	Date  time.Time `yaml:"date"`
	Price float64   `yaml:"price"`
}

// SeedTransaction is one transaction; amounts are decimal strings
type SeedTransaction struct {
	ID         string    `yaml:"id"`
	Date       time.Time `yaml:"date"`
	Type       string    `yaml:"type"`
	Instrument string    `yaml:"instrument"`
	Quantity   string    `yaml:"quantity"`
	UnitPrice  string    `yaml:"unit_price"`
}

// ImportSummary counts imported records
type ImportSummary struct {
	Instruments  int `json:"instruments"`
	Prices       int `json:"prices"`
	Transactions int `json:"transactions"`
}

// ReadSeed decodes a seed document
func ReadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	if seed.Portfolio == "" && len(seed.Transactions) > 0 {
		return nil, fmt.Errorf("seed with transactions needs a portfolio id")
	}
	return &seed, nil
}

// Import writes the seed. Transactions are applied in date order.
func (r *Repository) Import(ctx context.Context, seed *Seed) (ImportSummary, error) {
	var summary ImportSummary

	for _, si := range seed.Instruments {
		inst, err := domain.ParseInstrument(si.Kind, domain.InstrumentAttributes{
			Sector:    si.Sector,
			Coupon:    si.Coupon,
			Maturity:  si.Maturity,
			FaceValue: si.FaceValue,
			Detail:    si.Detail,
		})
		if err != nil {
			return summary, fmt.Errorf("instrument %s: %w", si.ID, err)
		}
		info := domain.InstrumentInfo{ID: si.ID, Name: si.Name, Instrument: inst, Liquidity: si.Liquidity}
		if err := r.UpsertInstrument(ctx, info); err != nil {
			return summary, err
		}
		summary.Instruments++
	}

	for id, prices := range seed.Prices {
		points := make([]domain.PricePoint, len(prices))
		for i, p := range prices {
			points[i] = domain.PricePoint{InstrumentID: id, Time: p.Date.UTC(), Price: p.Price}
		}
		if err := r.AddPrices(ctx, points); err != nil {
			return summary, err
		}
		summary.Prices += len(points)
	}

	txs := slices.Clone(seed.Transactions)
	slices.SortStableFunc(txs, func(a, b SeedTransaction) int { return a.Date.Compare(b.Date) })
	for _, st := range txs {
		t, err := st.transaction(seed.Portfolio)
		if err != nil {
			return summary, err
		}
		if _, err := r.RecordTransaction(ctx, t); err != nil {
			return summary, err
		}
		summary.Transactions++
	}

	r.log.Info().
		Str("portfolio_id", seed.Portfolio).
		Int("instruments", summary.Instruments).
		Int("prices", summary.Prices).
		Int("transactions", summary.Transactions).
		Msg("Seed imported")
	return summary, nil
}

func (st SeedTransaction) transaction(portfolioID string) (domain.Transaction, error) {
	parse := func(field, v string) (decimal.Decimal, error) {
		if v == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return d, fmt.Errorf("%w: %s %q: %v", domain.ErrInvalidTransaction, field, v, err)
		}
		return d, nil
	}

	qty, err := parse("quantity", st.Quantity)
	if err != nil {
		return domain.Transaction{}, err
	}
	price, err := parse("unit_price", st.UnitPrice)
	if err != nil {
		return domain.Transaction{}, err
	}
	return domain.Transaction{
		ID:           st.ID,
		PortfolioID:  portfolioID,
		InstrumentID: st.Instrument,
		Time:         st.Date.UTC(),
		Type:         domain.TransactionType(st.Type),
		Quantity:     qty,
		UnitPrice:    price,
	}, nil
}
