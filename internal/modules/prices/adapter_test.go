package prices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/horizon/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func points(id string, start time.Time, prices ...float64) []domain.PricePoint {
	out := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = domain.PricePoint{InstrumentID: id, Time: start.AddDate(0, 0, i), Price: p}
	}
	return out
}

func TestNormalize_DailyForwardFillsMissingBusinessDays(t *testing.T) {
	// Monday, Wednesday, Friday observed; Tuesday and Thursday missing.
	raw := []domain.PricePoint{
		{Time: date(2024, 1, 1), Price: 100},
		{Time: date(2024, 1, 3), Price: 102},
		{Time: date(2024, 1, 5), Price: 104},
	}

	s, err := Normalize("AAA", raw, domain.FrequencyDaily)
	require.NoError(t, err)

	assert.Equal(t, []float64{100, 100, 102, 102, 104}, s.Prices())
	assert.Equal(t, date(2024, 1, 2), s.Points[1].Time)
	assert.Equal(t, "AAA", s.Points[0].InstrumentID)
}

func TestNormalize_DailySkipsWeekends(t *testing.T) {
	// Friday 2024-01-05 to Tuesday 2024-01-09 with a Saturday observation.
	raw := []domain.PricePoint{
		{Time: date(2024, 1, 5), Price: 100},
		{Time: date(2024, 1, 6), Price: 101},
		{Time: date(2024, 1, 9), Price: 103},
	}

	s, err := Normalize("AAA", raw, domain.FrequencyDaily)
	require.NoError(t, err)

	require.Len(t, s.Points, 3)
	assert.Equal(t, date(2024, 1, 8), s.Points[1].Time)
	assert.Equal(t, 101.0, s.Points[1].Price, "weekend price carried into Monday")
}

func TestNormalize_Monthly(t *testing.T) {
	raw := []domain.PricePoint{
		{Time: date(2024, 1, 15), Price: 100},
		{Time: date(2024, 1, 31), Price: 101},
		{Time: date(2024, 3, 10), Price: 110},
	}

	s, err := Normalize("AAA", raw, domain.FrequencyMonthly)
	require.NoError(t, err)

	assert.Equal(t, []float64{101, 101, 110}, s.Prices())
	assert.Equal(t, date(2024, 2, 29), s.Points[1].Time)
	assert.Equal(t, date(2024, 3, 31), s.Points[2].Time)
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		raw     []domain.PricePoint
		freq    domain.Frequency
		wantErr error
	}{
		{
			name:    "duplicate timestamp",
			raw:     []domain.PricePoint{{Time: date(2024, 1, 1), Price: 1}, {Time: date(2024, 1, 1), Price: 2}},
			freq:    domain.FrequencyDaily,
			wantErr: domain.ErrUnorderedSeries,
		},
		{
			name:    "descending",
			raw:     []domain.PricePoint{{Time: date(2024, 1, 2), Price: 1}, {Time: date(2024, 1, 1), Price: 2}},
			freq:    domain.FrequencyDaily,
			wantErr: domain.ErrUnorderedSeries,
		},
		{
			name:    "zero price",
			raw:     []domain.PricePoint{{Time: date(2024, 1, 1), Price: 0}},
			freq:    domain.FrequencyDaily,
			wantErr: domain.ErrInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize("AAA", tt.raw, tt.freq)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := Normalize("AAA", nil, "weekly")
	assert.Error(t, err)
}

func TestNormalize_EmptyAndSinglePoint(t *testing.T) {
	s, err := Normalize("AAA", nil, domain.FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	s, err = Normalize("AAA", points("AAA", date(2024, 1, 2), 50), domain.FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}
