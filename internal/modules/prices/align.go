package prices

import (
	"slices"
	"time"

	"github.com/aristath/horizon/internal/domain"
)

// Align puts normalized series on one shared timeline.
//
// The timeline is the union of all timestamps from the latest first observation
// onward. Gaps are forward-filled; periods before an instrument's first price are
// excluded for every instrument, so no price is ever back-filled.
func Align(series []domain.PriceSeries) ([]domain.PriceSeries, error) {
	if len(series) == 0 {
		return nil, nil
	}

	var start time.Time
	for _, s := range series {
		if s.Len() == 0 {
			return nil, &domain.InsufficientDataError{Op: "align " + s.InstrumentID, Required: 1, Got: 0}
		}
		if first := s.Points[0].Time; first.After(start) {
			start = first
		}
	}

	seen := make(map[time.Time]struct{})
	var timeline []time.Time
	for _, s := range series {
		for _, p := range s.Points {
			if p.Time.Before(start) {
				continue
			}
			if _, ok := seen[p.Time]; !ok {
				seen[p.Time] = struct{}{}
				timeline = append(timeline, p.Time)
			}
		}
	}
	sortTimes(timeline)

	out := make([]domain.PriceSeries, len(series))
	for i, s := range series {
		out[i] = domain.PriceSeries{
			InstrumentID: s.InstrumentID,
			Frequency:    s.Frequency,
			Points:       fillForward(s, timeline),
		}
	}
	return out, nil
}

// fillForward samples s at every timeline instant using the last price on or before it.
func fillForward(s domain.PriceSeries, timeline []time.Time) []domain.PricePoint {
	points := make([]domain.PricePoint, 0, len(timeline))
	j := -1
	for _, t := range timeline {
		for j+1 < len(s.Points) && !s.Points[j+1].Time.After(t) {
			j++
		}
		if j < 0 {
			continue
		}
		points = append(points, domain.PricePoint{InstrumentID: s.InstrumentID, Time: t, Price: s.Points[j].Price})
	}
	return points
}

func sortTimes(ts []time.Time) {
	slices.SortFunc(ts, func(a, b time.Time) int { return a.Compare(b) })
}
