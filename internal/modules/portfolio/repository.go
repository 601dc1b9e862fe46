// Package portfolio stores instruments, prices, transactions and holdings in
// sqlite and serves them to the analytics engine.
package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/horizon/internal/domain"
)

// Repository reads and writes portfolio.db. It implements every data source
// the analytics facade consumes.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

var (
	_ domain.PriceSource       = (*Repository)(nil)
	_ domain.TransactionSource = (*Repository)(nil)
	_ domain.HoldingsSource    = (*Repository)(nil)
	_ domain.InstrumentCatalog = (*Repository)(nil)
)

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// GetPriceSeries returns the stored prices of an instrument over [start, end].
// An instrument that is neither priced nor catalogued is ErrNotFound.
func (r *Repository) GetPriceSeries(ctx context.Context, instrumentID string, start, end time.Time) ([]domain.PricePoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ts, price FROM prices
		 WHERE instrument_id = ? AND ts >= ? AND ts <= ?
		 ORDER BY ts`,
		instrumentID, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", instrumentID, err)
	}
	defer rows.Close()

	points := []domain.PricePoint{}
	for rows.Next() {
		var ts int64
		var price float64
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		points = append(points, domain.PricePoint{
			InstrumentID: instrumentID,
			Time:         time.Unix(ts, 0).UTC(),
			Price:        price,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	if len(points) == 0 {
		known, err := r.instrumentKnown(ctx, instrumentID)
		if err != nil {
			return nil, err
		}
		if !known {
			return nil, fmt.Errorf("%w: instrument %s", domain.ErrNotFound, instrumentID)
		}
	}
	return points, nil
}

func (r *Repository) instrumentKnown(ctx context.Context, instrumentID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM instruments WHERE id = ?) + (SELECT COUNT(*) FROM prices WHERE instrument_id = ?)`,
		instrumentID, instrumentID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up instrument %s: %w", instrumentID, err)
	}
	return n > 0, nil
}

// GetTransactions returns a portfolio's transactions over [start, end] in time
// order. A zero start means from the first transaction.
func (r *Repository) GetTransactions(ctx context.Context, portfolioID string, start, end time.Time) ([]domain.Transaction, error) {
	query := `SELECT id, portfolio_id, instrument_id, ts, type, quantity, unit_price
		FROM transactions WHERE portfolio_id = ? AND ts <= ?`
	args := []interface{}{portfolioID, end.Unix()}
	if !start.IsZero() {
		query += " AND ts >= ?"
		args = append(args, start.Unix())
	}
	query += " ORDER BY ts, rowid"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

func scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	var tx domain.Transaction
	var ts int64
	var txType, quantity, unitPrice string

	if err := rows.Scan(&tx.ID, &tx.PortfolioID, &tx.InstrumentID, &ts, &txType, &quantity, &unitPrice); err != nil {
		return tx, err
	}
	tx.Time = time.Unix(ts, 0).UTC()
	tx.Type = domain.TransactionType(txType)

	var err error
	if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return tx, fmt.Errorf("transaction %s quantity: %w", tx.ID, err)
	}
	if tx.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return tx, fmt.Errorf("transaction %s unit price: %w", tx.ID, err)
	}
	return tx, nil
}

// Holding is a held quantity valued at the latest stored price. Cost basis
// follows the average cost method: sells release cost at the running average.
type Holding struct {
	InstrumentID         string          `json:"instrument_id"`
	Quantity             decimal.Decimal `json:"quantity"`
	Price                decimal.Decimal `json:"price"`
	PricedAt             time.Time       `json:"priced_at"`
	AverageCost          decimal.Decimal `json:"average_cost"`
	CostBasis            decimal.Decimal `json:"cost_basis"`
	UnrealizedPnL        decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPercent decimal.Decimal `json:"unrealized_pnl_percent"`
}

// Value is quantity × price
func (h Holding) Value() decimal.Decimal {
	return h.Quantity.Mul(h.Price)
}

// GetHoldings returns the portfolio's holdings valued at their latest price
func (r *Repository) GetHoldings(ctx context.Context, portfolioID string) ([]Holding, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT h.instrument_id, h.quantity,
		        (SELECT p.price FROM prices p WHERE p.instrument_id = h.instrument_id ORDER BY p.ts DESC LIMIT 1),
		        (SELECT MAX(p.ts) FROM prices p WHERE p.instrument_id = h.instrument_id)
		 FROM holdings h
		 WHERE h.portfolio_id = ?
		 ORDER BY h.instrument_id`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		var id, quantity string
		var price sql.NullFloat64
		var ts sql.NullInt64
		if err := rows.Scan(&id, &quantity, &price, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		if !price.Valid {
			return nil, fmt.Errorf("%w: no price for held instrument %s", domain.ErrInsufficientData, id)
		}
		qty, err := decimal.NewFromString(quantity)
		if err != nil {
			return nil, fmt.Errorf("holding %s quantity: %w", id, err)
		}
		holdings = append(holdings, Holding{
			InstrumentID: id,
			Quantity:     qty,
			Price:        decimal.NewFromFloat(price.Float64),
			PricedAt:     time.Unix(ts.Int64, 0).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	rows.Close()

	costs, err := r.costBasis(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	for i := range holdings {
		h := &holdings[i]
		h.CostBasis = costs[h.InstrumentID].Round(2)
		h.AverageCost = costs[h.InstrumentID].Div(h.Quantity).Round(4)
		h.UnrealizedPnL = h.Value().Sub(costs[h.InstrumentID]).Round(2)
		if costs[h.InstrumentID].IsPositive() {
			h.UnrealizedPnLPercent = h.Value().Sub(costs[h.InstrumentID]).
				Div(costs[h.InstrumentID]).Mul(decimal.NewFromInt(100)).Round(2)
		}
	}
	return holdings, nil
}

// costBasis replays the portfolio's trades in time order and returns the
// remaining cost of each open position.
func (r *Repository) costBasis(ctx context.Context, portfolioID string) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, portfolio_id, instrument_id, ts, type, quantity, unit_price
		 FROM transactions
		 WHERE portfolio_id = ? AND type IN (?, ?)
		 ORDER BY ts, rowid`,
		portfolioID, string(domain.TransactionBuy), string(domain.TransactionSell))
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return AverageCosts(trades), nil
}

// AverageCosts returns the open cost per instrument under the average cost
// method. Trades must be in time order.
func AverageCosts(trades []domain.Transaction) map[string]decimal.Decimal {
	units := make(map[string]decimal.Decimal)
	costs := make(map[string]decimal.Decimal)
	for _, t := range trades {
		held := units[t.InstrumentID]
		switch t.Type {
		case domain.TransactionBuy:
			units[t.InstrumentID] = held.Add(t.Quantity)
			costs[t.InstrumentID] = costs[t.InstrumentID].Add(t.Amount())
		case domain.TransactionSell:
			if !held.IsPositive() {
				continue
			}
			remaining := held.Sub(t.Quantity)
			if !remaining.IsPositive() {
				units[t.InstrumentID] = decimal.Zero
				costs[t.InstrumentID] = decimal.Zero
				continue
			}
			units[t.InstrumentID] = remaining
			costs[t.InstrumentID] = costs[t.InstrumentID].Mul(remaining).Div(held)
		}
	}
	return costs
}

// GetCurrentWeights returns each holding's share of the portfolio value.
// A portfolio without holdings yields an empty map.
func (r *Repository) GetCurrentWeights(ctx context.Context, portfolioID string) (map[string]float64, error) {
	holdings, err := r.GetHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.Value())
	}

	weights := make(map[string]float64, len(holdings))
	if !total.IsPositive() {
		return weights, nil
	}
	for _, h := range holdings {
		weights[h.InstrumentID] = h.Value().Div(total).InexactFloat64()
	}
	return weights, nil
}

// GetPortfolioValue returns the market value of the holdings
func (r *Repository) GetPortfolioValue(ctx context.Context, portfolioID string) (float64, error) {
	holdings, err := r.GetHoldings(ctx, portfolioID)
	if err != nil {
		return 0, err
	}
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.Value())
	}
	return total.InexactFloat64(), nil
}

// GetInstruments returns catalog entries for ids. Unknown ids are absent.
func (r *Repository) GetInstruments(ctx context.Context, ids []string) (map[string]domain.InstrumentInfo, error) {
	out := make(map[string]domain.InstrumentInfo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind, sector, coupon, maturity, face_value, detail, liquidity
		 FROM instruments WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		info, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		out[info.ID] = info
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instruments: %w", err)
	}
	return out, nil
}

func scanInstrument(rows *sql.Rows) (domain.InstrumentInfo, error) {
	var info domain.InstrumentInfo
	var kind string
	var attrs domain.InstrumentAttributes
	var maturity sql.NullInt64
	var liquidity sql.NullFloat64

	err := rows.Scan(&info.ID, &info.Name, &kind, &attrs.Sector, &attrs.Coupon,
		&maturity, &attrs.FaceValue, &attrs.Detail, &liquidity)
	if err != nil {
		return info, fmt.Errorf("failed to scan instrument: %w", err)
	}
	if maturity.Valid {
		attrs.Maturity = time.Unix(maturity.Int64, 0).UTC()
	}
	if liquidity.Valid {
		v := liquidity.Float64
		info.Liquidity = &v
	}

	info.Instrument, err = domain.ParseInstrument(kind, attrs)
	if err != nil {
		return info, fmt.Errorf("instrument %s: %w", info.ID, err)
	}
	return info, nil
}

// attributesOf flattens an instrument variant into its stored columns
func attributesOf(inst domain.Instrument) domain.InstrumentAttributes {
	switch v := inst.(type) {
	case domain.Equity:
		return domain.InstrumentAttributes{Sector: v.Sector}
	case domain.Bond:
		return domain.InstrumentAttributes{Coupon: v.Coupon, Maturity: v.Maturity, FaceValue: v.FaceValue}
	case domain.RealAsset:
		return domain.InstrumentAttributes{Detail: v.Kind}
	}
	return domain.InstrumentAttributes{}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
