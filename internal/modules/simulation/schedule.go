package simulation

import "fmt"

// Schedule yields the contribution added at the end of each period
type Schedule interface {
	Contribution(period int) float64
}

// FixedContribution adds the same amount every period
type FixedContribution struct {
	Amount float64 `json:"amount"`
}

// Contribution returns the fixed amount
func (f FixedContribution) Contribution(int) float64 { return f.Amount }

// ScheduledContributions adds Base every period plus one-off events keyed by
// period index. Negative amounts are withdrawals.
type ScheduledContributions struct {
	Base   float64         `json:"base"`
	Events map[int]float64 `json:"events"`
}

// Contribution returns the base amount plus the event amount of the period
func (s ScheduledContributions) Contribution(period int) float64 {
	return s.Base + s.Events[period]
}

func validateSchedule(s Schedule, horizon int) error {
	switch v := s.(type) {
	case nil:
		return nil
	case FixedContribution:
		if !finite(v.Amount) {
			return invalid("contributions.amount", "must be finite")
		}
	case ScheduledContributions:
		if !finite(v.Base) {
			return invalid("contributions.base", "must be finite")
		}
		for period, amount := range v.Events {
			if period < 0 || period >= horizon {
				return invalid("contributions.events", fmt.Sprintf("period %d outside [0, %d)", period, horizon))
			}
			if !finite(amount) {
				return invalid("contributions.events", fmt.Sprintf("amount at period %d must be finite", period))
			}
		}
	}
	return nil
}

func contributions(s Schedule, horizon int) []float64 {
	out := make([]float64, horizon)
	if s == nil {
		return out
	}
	for t := range out {
		out[t] = s.Contribution(t)
	}
	return out
}
