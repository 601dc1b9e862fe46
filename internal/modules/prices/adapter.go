// Package prices normalizes raw market data into ordered, gap-free series and
// fetches series for many instruments concurrently.
package prices

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/horizon/internal/domain"
)

// Normalize validates a raw series and resamples it onto the frequency's calendar
// (business days or month ends), forward-filling missing periods.
//
// The input must already be strictly ordered by time with positive, finite prices;
// violations fail instead of being repaired. An empty input yields an empty series.
func Normalize(instrumentID string, raw []domain.PricePoint, freq domain.Frequency) (domain.PriceSeries, error) {
	out := domain.PriceSeries{InstrumentID: instrumentID, Frequency: freq}
	if !freq.Valid() {
		return out, fmt.Errorf("unsupported frequency %q", freq)
	}

	for i, p := range raw {
		if p.Price <= 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return out, fmt.Errorf("%w: %s has price %v at %s", domain.ErrInvalidPrice, instrumentID, p.Price, p.Time.Format(time.RFC3339))
		}
		if i > 0 && !p.Time.After(raw[i-1].Time) {
			return out, fmt.Errorf("%w: %s at index %d (%s after %s)", domain.ErrUnorderedSeries,
				instrumentID, i, p.Time.Format(time.RFC3339), raw[i-1].Time.Format(time.RFC3339))
		}
	}
	if len(raw) == 0 {
		return out, nil
	}

	var calendar []time.Time
	switch freq {
	case domain.FrequencyMonthly:
		calendar = monthEnds(day(raw[0].Time), day(raw[len(raw)-1].Time))
	default:
		calendar = businessDays(day(raw[0].Time), day(raw[len(raw)-1].Time))
	}

	out.Points = resample(instrumentID, raw, calendar)
	return out, nil
}

// resample takes, for every calendar date, the last observation on or before it.
// Calendar dates before the first observation are dropped.
func resample(instrumentID string, raw []domain.PricePoint, calendar []time.Time) []domain.PricePoint {
	points := make([]domain.PricePoint, 0, len(calendar))
	j := -1
	for _, d := range calendar {
		for j+1 < len(raw) && !day(raw[j+1].Time).After(d) {
			j++
		}
		if j < 0 {
			continue
		}
		points = append(points, domain.PricePoint{InstrumentID: instrumentID, Time: d, Price: raw[j].Price})
	}
	return points
}

// day truncates t to midnight UTC of its calendar date.
func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// businessDays lists Monday to Friday dates in [from, to]. A weekend start is
// folded into the following Monday; a weekend end is folded into the prior Friday.
func businessDays(from, to time.Time) []time.Time {
	for !isBusinessDay(from) {
		from = from.AddDate(0, 0, 1)
	}
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if isBusinessDay(d) {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		// Range entirely inside one weekend: keep the Monday that follows it.
		out = append(out, from)
	}
	return out
}

// monthEnds lists the last calendar day of every month touched by [from, to].
func monthEnds(from, to time.Time) []time.Time {
	var out []time.Time
	for m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(to); m = m.AddDate(0, 1, 0) {
		out = append(out, m.AddDate(0, 1, -1))
	}
	return out
}
