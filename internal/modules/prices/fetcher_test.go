package prices

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/horizon/internal/domain"
)

type fakeSource struct {
	mu       sync.Mutex
	series   map[string][]domain.PricePoint
	failures map[string]error
	delay    time.Duration
	calls    map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		series:   make(map[string][]domain.PricePoint),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeSource) GetPriceSeries(ctx context.Context, id string, start, end time.Time) ([]domain.PricePoint, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[id]++
	err := f.failures[id]
	pts := f.series[id]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return pts, nil
}

type recordingObserver struct {
	mu     sync.Mutex
	failed []string
	total  int
}

func (o *recordingObserver) ObserveFetch(id string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.total++
	if err != nil {
		o.failed = append(o.failed, id)
	}
}

func TestFetchAll_ReportsPerInstrumentErrors(t *testing.T) {
	src := newFakeSource()
	src.series["A"] = points("A", date(2024, 1, 1), 10, 11, 12)
	src.series["C"] = points("C", date(2024, 1, 1), 5, 6, 7)
	src.failures["B"] = errors.New("upstream 503")

	obs := &recordingObserver{}
	f := NewFetcher(src, FetcherConfig{MaxConcurrency: 2}, zerolog.Nop()).WithObserver(obs)

	rng := domain.DateRange{Start: date(2024, 1, 1), End: date(2024, 1, 3)}
	results := f.FetchAll(context.Background(), []string{"A", "B", "C"}, rng, domain.FrequencyDaily)

	require.Len(t, results, 3)
	assert.Equal(t, "A", results[0].InstrumentID)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 3, results[0].Series.Len())
	assert.ErrorContains(t, results[1].Err, "upstream 503")
	assert.NoError(t, results[2].Err)

	failed := Failures(results)
	assert.Len(t, failed, 1)
	assert.Contains(t, failed, "B")
	assert.Equal(t, 3, obs.total)
	assert.Equal(t, []string{"B"}, obs.failed)
}

func TestFetchAll_BoundsConcurrency(t *testing.T) {
	src := newFakeSource()
	src.delay = 20 * time.Millisecond
	ids := []string{"A", "B", "C", "D", "E", "F"}
	for _, id := range ids {
		src.series[id] = points(id, date(2024, 1, 1), 1, 2)
	}

	f := NewFetcher(src, FetcherConfig{MaxConcurrency: 2}, zerolog.Nop())
	results := f.FetchAll(context.Background(), ids, domain.DateRange{Start: date(2024, 1, 1), End: date(2024, 1, 2)}, domain.FrequencyDaily)

	assert.Empty(t, Failures(results))
	assert.LessOrEqual(t, src.peak.Load(), int32(2))
}

func TestFetchAll_SlowFetchTimesOutAlone(t *testing.T) {
	src := newFakeSource()
	src.delay = 200 * time.Millisecond

	f := NewFetcher(src, FetcherConfig{MaxConcurrency: 4, Timeout: 10 * time.Millisecond}, zerolog.Nop())
	results := f.FetchAll(context.Background(), []string{"SLOW"}, domain.DateRange{Start: date(2024, 1, 1), End: date(2024, 1, 2)}, domain.FrequencyDaily)

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
}

func TestFetchAll_NormalizationErrorsAreCaptured(t *testing.T) {
	src := newFakeSource()
	src.series["BAD"] = []domain.PricePoint{{Time: date(2024, 1, 2), Price: 1}, {Time: date(2024, 1, 1), Price: 1}}

	f := NewFetcher(src, FetcherConfig{}, zerolog.Nop())
	results := f.FetchAll(context.Background(), []string{"BAD"}, domain.DateRange{Start: date(2024, 1, 1), End: date(2024, 1, 2)}, domain.FrequencyDaily)

	assert.ErrorIs(t, results[0].Err, domain.ErrUnorderedSeries)
}
