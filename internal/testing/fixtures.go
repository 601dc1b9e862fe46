package testing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/horizon/internal/domain"
)

// NewInstrumentFixtures returns two equities, an ETF and a bond with an
// explicit liquidity tag.
func NewInstrumentFixtures() []domain.InstrumentInfo {
	bondLiquidity := 6.5
	return []domain.InstrumentInfo{
		{ID: "AAPL", Name: "Apple Inc.", Instrument: domain.Equity{Sector: "Technology"}},
		{ID: "JNJ", Name: "Johnson & Johnson", Instrument: domain.Equity{Sector: "Healthcare"}},
		{ID: "VWCE", Name: "Vanguard FTSE All-World", Instrument: domain.Fund{Kind: domain.FundETF}},
		{
			ID:         "BTP34",
			Name:       "BTP 3% 2034",
			Instrument: domain.Bond{Coupon: 0.03, Maturity: time.Date(2034, 6, 1, 0, 0, 0, 0, time.UTC), FaceValue: 100},
			Liquidity:  &bondLiquidity,
		},
	}
}

// PriceWalk returns one price per business day starting at start. Each price
// grows by drift and oscillates by swing, so returns have non-zero variance.
func PriceWalk(instrumentID string, start time.Time, days int, startPrice, drift, swing float64) []domain.PricePoint {
	points := make([]domain.PricePoint, 0, days)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for len(points) < days {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			i := float64(len(points))
			price := startPrice * math.Pow(1+drift, i) * (1 + swing*math.Sin(i))
			points = append(points, domain.PricePoint{InstrumentID: instrumentID, Time: day, Price: price})
		}
		day = day.AddDate(0, 0, 1)
	}
	return points
}

// Buy returns a BUY transaction at the given point.
func Buy(portfolioID string, at domain.PricePoint, quantity int64) domain.Transaction {
	return domain.Transaction{
		PortfolioID:  portfolioID,
		InstrumentID: at.InstrumentID,
		Time:         at.Time,
		Type:         domain.TransactionBuy,
		Quantity:     decimal.NewFromInt(quantity),
		UnitPrice:    decimal.NewFromFloat(at.Price),
	}
}
