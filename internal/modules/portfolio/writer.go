package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aristath/horizon/internal/database"
	"github.com/aristath/horizon/internal/domain"
)

// UpsertInstrument stores or replaces catalog metadata
func (r *Repository) UpsertInstrument(ctx context.Context, info domain.InstrumentInfo) error {
	if info.ID == "" || info.Instrument == nil {
		return fmt.Errorf("instrument needs an id and a kind")
	}
	attrs := attributesOf(info.Instrument)

	var maturity sql.NullInt64
	if !attrs.Maturity.IsZero() {
		maturity = sql.NullInt64{Int64: attrs.Maturity.Unix(), Valid: true}
	}
	var liquidity sql.NullFloat64
	if info.Liquidity != nil {
		liquidity = sql.NullFloat64{Float64: *info.Liquidity, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO instruments
		 (id, name, kind, sector, coupon, maturity, face_value, detail, liquidity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Name, domain.KindOf(info.Instrument), attrs.Sector, attrs.Coupon,
		maturity, attrs.FaceValue, attrs.Detail, liquidity)
	if err != nil {
		return fmt.Errorf("failed to store instrument %s: %w", info.ID, err)
	}
	return nil
}

// AddPrices stores price points, replacing any existing point at the same time
func (r *Repository) AddPrices(ctx context.Context, points []domain.PricePoint) error {
	for _, p := range points {
		if p.InstrumentID == "" || math.IsNaN(p.Price) || p.Price <= 0 {
			return fmt.Errorf("%w: %s at %s", domain.ErrInvalidPrice, p.InstrumentID, p.Time.Format("2006-01-02"))
		}
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO prices (instrument_id, ts, price) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare price insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, p.InstrumentID, p.Time.Unix(), p.Price); err != nil {
				return fmt.Errorf("failed to store price for %s: %w", p.InstrumentID, err)
			}
		}
		return nil
	})
}

// RecordTransaction appends a transaction and applies its unit change to the
// holdings. Selling more than is held is rejected. An empty ID is assigned.
func (r *Repository) RecordTransaction(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	if err := t.Validate(); err != nil {
		return t, err
	}
	if t.PortfolioID == "" {
		return t, fmt.Errorf("%w: missing portfolio id", domain.ErrInvalidTransaction)
	}
	if t.IsTrade() && t.InstrumentID == "" {
		return t, fmt.Errorf("%w: %s without instrument", domain.ErrInvalidTransaction, t.Type)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, portfolio_id, instrument_id, ts, type, quantity, unit_price)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.PortfolioID, t.InstrumentID, t.Time.Unix(), string(t.Type),
			t.Quantity.String(), t.UnitPrice.String())
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}

		if !t.IsTrade() {
			return nil
		}
		return applyUnits(ctx, tx, t.PortfolioID, t.InstrumentID, t.UnitDelta())
	})
	if err != nil {
		return t, err
	}

	r.log.Debug().
		Str("portfolio_id", t.PortfolioID).
		Str("instrument_id", t.InstrumentID).
		Str("type", string(t.Type)).
		Msg("Transaction recorded")
	return t, nil
}

func applyUnits(ctx context.Context, tx *sql.Tx, portfolioID, instrumentID string, delta decimal.Decimal) error {
	held := decimal.Zero
	var current string
	err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM holdings WHERE portfolio_id = ? AND instrument_id = ?`,
		portfolioID, instrumentID).Scan(&current)
	switch {
	case isNoRows(err):
	case err != nil:
		return fmt.Errorf("failed to read holding %s: %w", instrumentID, err)
	default:
		if held, err = decimal.NewFromString(current); err != nil {
			return fmt.Errorf("holding %s quantity: %w", instrumentID, err)
		}
	}

	next := held.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("%w: selling %s units of %s with only %s held",
			domain.ErrInvalidTransaction, delta.Neg(), instrumentID, held)
	}

	if next.IsZero() {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM holdings WHERE portfolio_id = ? AND instrument_id = ?`,
			portfolioID, instrumentID)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO holdings (portfolio_id, instrument_id, quantity) VALUES (?, ?, ?)`,
			portfolioID, instrumentID, next.String())
	}
	if err != nil {
		return fmt.Errorf("failed to update holding %s: %w", instrumentID, err)
	}
	return nil
}
