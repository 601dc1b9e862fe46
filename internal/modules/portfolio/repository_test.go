package portfolio

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aristath/horizon/internal/database"
	"github.com/aristath/horizon/internal/domain"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// one connection keeps the in-memory database shared
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := database.Schema("portfolio")
	require.NoError(t, err)
	_, err = db.Exec(schema)
	require.NoError(t, err)

	return NewRepository(db, zerolog.New(nil).Level(zerolog.Disabled))
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func trade(typ domain.TransactionType, id string, d int, qty, price string) domain.Transaction {
	return domain.Transaction{
		PortfolioID:  "main",
		InstrumentID: id,
		Time:         day(d),
		Type:         typ,
		Quantity:     decimal.RequireFromString(qty),
		UnitPrice:    decimal.RequireFromString(price),
	}
}

func TestGetPriceSeries(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddPrices(ctx, []domain.PricePoint{
		{InstrumentID: "AAA", Time: day(3), Price: 102},
		{InstrumentID: "AAA", Time: day(1), Price: 100},
		{InstrumentID: "AAA", Time: day(2), Price: 101},
		{InstrumentID: "AAA", Time: day(5), Price: 104},
	}))

	points, err := repo.GetPriceSeries(ctx, "AAA", day(2), day(3))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, day(2), points[0].Time)
	assert.Equal(t, 102.0, points[1].Price)
	assert.Equal(t, "AAA", points[1].InstrumentID)

	t.Run("known instrument outside the range is empty", func(t *testing.T) {
		points, err := repo.GetPriceSeries(ctx, "AAA", day(10), day(20))
		require.NoError(t, err)
		assert.Empty(t, points)
	})

	t.Run("unknown instrument is not found", func(t *testing.T) {
		_, err := repo.GetPriceSeries(ctx, "ZZZ", day(1), day(20))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("invalid prices are rejected", func(t *testing.T) {
		err := repo.AddPrices(ctx, []domain.PricePoint{{InstrumentID: "AAA", Time: day(6), Price: 0}})
		assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	})
}

func TestRecordTransaction_MaintainsHoldings(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddPrices(ctx, []domain.PricePoint{
		{InstrumentID: "AAA", Time: day(1), Price: 100},
		{InstrumentID: "AAA", Time: day(4), Price: 110},
		{InstrumentID: "BBB", Time: day(4), Price: 50},
	}))

	buy, err := repo.RecordTransaction(ctx, trade(domain.TransactionBuy, "AAA", 1, "10", "100"))
	require.NoError(t, err)
	assert.NotEmpty(t, buy.ID)

	_, err = repo.RecordTransaction(ctx, trade(domain.TransactionBuy, "BBB", 2, "22", "50"))
	require.NoError(t, err)
	_, err = repo.RecordTransaction(ctx, trade(domain.TransactionSell, "AAA", 3, "4", "105"))
	require.NoError(t, err)
	_, err = repo.RecordTransaction(ctx, domain.Transaction{
		PortfolioID: "main", Time: day(3), Type: domain.TransactionDeposit, UnitPrice: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	holdings, err := repo.GetHoldings(ctx, "main")
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.True(t, holdings[0].Quantity.Equal(decimal.NewFromInt(6)))
	assert.True(t, holdings[0].Price.Equal(decimal.NewFromInt(110)))
	assert.Equal(t, day(4), holdings[0].PricedAt)

	// AAA 6 × 110 = 660, BBB 22 × 50 = 1100
	value, err := repo.GetPortfolioValue(ctx, "main")
	require.NoError(t, err)
	assert.InDelta(t, 1760.0, value, 1e-9)

	weights, err := repo.GetCurrentWeights(ctx, "main")
	require.NoError(t, err)
	assert.InDelta(t, 660.0/1760, weights["AAA"], 1e-12)
	assert.InDelta(t, 1100.0/1760, weights["BBB"], 1e-12)

	t.Run("overselling is rejected and nothing is written", func(t *testing.T) {
		_, err := repo.RecordTransaction(ctx, trade(domain.TransactionSell, "AAA", 5, "7", "110"))
		require.ErrorIs(t, err, domain.ErrInvalidTransaction)

		txs, err := repo.GetTransactions(ctx, "main", time.Time{}, day(31))
		require.NoError(t, err)
		assert.Len(t, txs, 4)
	})

	t.Run("selling everything removes the holding", func(t *testing.T) {
		_, err := repo.RecordTransaction(ctx, trade(domain.TransactionSell, "BBB", 5, "22", "50"))
		require.NoError(t, err)

		weights, err := repo.GetCurrentWeights(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"AAA": 1}, weights)
	})
}

func TestGetHoldings_CostBasisAndUnrealizedPnL(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddPrices(ctx, []domain.PricePoint{
		{InstrumentID: "AAA", Time: day(4), Price: 110},
		{InstrumentID: "BBB", Time: day(4), Price: 40},
	}))
	for _, tx := range []domain.Transaction{
		trade(domain.TransactionBuy, "AAA", 1, "10", "100"),
		trade(domain.TransactionBuy, "AAA", 2, "10", "120"),
		trade(domain.TransactionSell, "AAA", 3, "15", "130"),
		trade(domain.TransactionBuy, "BBB", 2, "10", "50"),
	} {
		_, err := repo.RecordTransaction(ctx, tx)
		require.NoError(t, err)
	}

	holdings, err := repo.GetHoldings(ctx, "main")
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	// AAA: 20 units at 110 average, 5 left cost 550, worth 550
	aaa := holdings[0]
	assert.Equal(t, "AAA", aaa.InstrumentID)
	assert.True(t, aaa.AverageCost.Equal(decimal.NewFromInt(110)), aaa.AverageCost.String())
	assert.True(t, aaa.CostBasis.Equal(decimal.NewFromInt(550)), aaa.CostBasis.String())
	assert.True(t, aaa.UnrealizedPnL.IsZero(), aaa.UnrealizedPnL.String())
	assert.True(t, aaa.UnrealizedPnLPercent.IsZero())

	// BBB: cost 500, worth 400
	bbb := holdings[1]
	assert.True(t, bbb.CostBasis.Equal(decimal.NewFromInt(500)))
	assert.True(t, bbb.UnrealizedPnL.Equal(decimal.NewFromInt(-100)))
	assert.True(t, bbb.UnrealizedPnLPercent.Equal(decimal.NewFromInt(-20)))
}

func TestAverageCosts(t *testing.T) {
	tests := []struct {
		name   string
		trades []domain.Transaction
		want   map[string]string
	}{
		{
			name:   "single buy",
			trades: []domain.Transaction{trade(domain.TransactionBuy, "AAA", 1, "2", "50")},
			want:   map[string]string{"AAA": "100"},
		},
		{
			name: "partial sell releases average cost",
			trades: []domain.Transaction{
				trade(domain.TransactionBuy, "AAA", 1, "4", "10"),
				trade(domain.TransactionBuy, "AAA", 2, "4", "20"),
				trade(domain.TransactionSell, "AAA", 3, "2", "99"),
			},
			want: map[string]string{"AAA": "90"},
		},
		{
			name: "closed position has no cost",
			trades: []domain.Transaction{
				trade(domain.TransactionBuy, "AAA", 1, "3", "10"),
				trade(domain.TransactionSell, "AAA", 2, "3", "12"),
			},
			want: map[string]string{"AAA": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AverageCosts(tt.trades)
			for id, want := range tt.want {
				assert.True(t, got[id].Equal(decimal.RequireFromString(want)), "%s: %s", id, got[id])
			}
		})
	}
}

func TestRecordTransaction_Validation(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name string
		tx   domain.Transaction
	}{
		{"unknown type", domain.Transaction{PortfolioID: "main", Time: day(1), Type: "SPLIT"}},
		{"zero quantity", trade(domain.TransactionBuy, "AAA", 1, "0", "10")},
		{"missing portfolio", domain.Transaction{InstrumentID: "AAA", Time: day(1), Type: domain.TransactionBuy, Quantity: decimal.NewFromInt(1)}},
		{"trade without instrument", trade(domain.TransactionBuy, "", 1, "1", "10")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.RecordTransaction(ctx, tt.tx)
			assert.ErrorIs(t, err, domain.ErrInvalidTransaction)
		})
	}
}

func TestGetTransactions_RangeAndOrder(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, tx := range []domain.Transaction{
		trade(domain.TransactionBuy, "AAA", 5, "1", "10"),
		trade(domain.TransactionBuy, "AAA", 1, "2", "10"),
		trade(domain.TransactionSell, "AAA", 9, "1.5", "12.25"),
	} {
		_, err := repo.RecordTransaction(ctx, tx)
		require.NoError(t, err)
	}

	all, err := repo.GetTransactions(ctx, "main", time.Time{}, day(31))
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, day(1), all[0].Time)
	assert.Equal(t, day(9), all[2].Time)
	assert.True(t, all[2].Quantity.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, all[2].UnitPrice.Equal(decimal.RequireFromString("12.25")))

	window, err := repo.GetTransactions(ctx, "main", day(2), day(8))
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, day(5), window[0].Time)

	other, err := repo.GetTransactions(ctx, "other", time.Time{}, day(31))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestGetHoldings_MissingPrice(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	_, err := repo.RecordTransaction(ctx, trade(domain.TransactionBuy, "AAA", 1, "1", "10"))
	require.NoError(t, err)

	_, err = repo.GetCurrentWeights(ctx, "main")
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestGetCurrentWeights_EmptyPortfolio(t *testing.T) {
	repo := setupTestRepo(t)

	weights, err := repo.GetCurrentWeights(context.Background(), "main")
	require.NoError(t, err)
	assert.Empty(t, weights)
}

func TestInstruments_RoundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	tag := 3.5
	maturity := time.Date(2034, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertInstrument(ctx, domain.InstrumentInfo{
		ID: "AAA", Name: "Alpha", Instrument: domain.Equity{Sector: "Technology"},
	}))
	require.NoError(t, repo.UpsertInstrument(ctx, domain.InstrumentInfo{
		ID: "GOV", Name: "Gov 2034", Instrument: domain.Bond{Coupon: 0.03, Maturity: maturity, FaceValue: 1000},
	}))
	require.NoError(t, repo.UpsertInstrument(ctx, domain.InstrumentInfo{
		ID: "VWCE", Instrument: domain.Fund{Kind: domain.FundETF}, Liquidity: &tag,
	}))

	got, err := repo.GetInstruments(ctx, []string{"AAA", "GOV", "VWCE", "ZZZ"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, domain.Equity{Sector: "Technology"}, got["AAA"].Instrument)
	assert.Equal(t, "Alpha", got["AAA"].Name)
	assert.Nil(t, got["AAA"].Liquidity)
	assert.Equal(t, domain.Bond{Coupon: 0.03, Maturity: maturity, FaceValue: 1000}, got["GOV"].Instrument)
	assert.Equal(t, domain.Fund{Kind: domain.FundETF}, got["VWCE"].Instrument)
	assert.Equal(t, 3.5, got["VWCE"].LiquidityTag())

	empty, err := repo.GetInstruments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.Error(t, repo.UpsertInstrument(ctx, domain.InstrumentInfo{ID: "X"}))
}

const testSeed = `
portfolio: main
instruments:
  - id: AAA
    name: Alpha
    kind: equity
    sector: Technology
  - id: GOV
    kind: bond
    coupon: 0.03
    maturity: 2034-06-01
    liquidity: 6.5
prices:
  AAA:
    - {date: 2024-01-01, price: 100}
    - {date: 2024-01-02, price: 101}
  GOV:
    - {date: 2024-01-02, price: 98}
transactions:
  - {date: 2024-01-02, type: SELL, instrument: AAA, quantity: "2", unit_price: "101"}
  - {date: 2024-01-01, type: BUY, instrument: AAA, quantity: "5", unit_price: "100"}
  - {date: 2024-01-02, type: BUY, instrument: GOV, quantity: "3", unit_price: "98"}
`

func TestImportSeed(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	seed, err := ReadSeed(strings.NewReader(testSeed))
	require.NoError(t, err)

	summary, err := repo.Import(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Instruments: 2, Prices: 3, Transactions: 3}, summary)

	// the BUY is applied before the later SELL despite file order
	value, err := repo.GetPortfolioValue(ctx, "main")
	require.NoError(t, err)
	assert.InDelta(t, 3*101.0+3*98.0, value, 1e-9)

	catalog, err := repo.GetInstruments(ctx, []string{"GOV"})
	require.NoError(t, err)
	assert.Equal(t, 6.5, catalog["GOV"].LiquidityTag())
}

func TestReadSeed_Errors(t *testing.T) {
	_, err := ReadSeed(strings.NewReader("portfolio: main\nunknown_field: 1\n"))
	assert.Error(t, err)

	_, err = ReadSeed(strings.NewReader("transactions:\n  - {date: 2024-01-01, type: DEPOSIT, unit_price: \"1\"}\n"))
	assert.Error(t, err)
}
