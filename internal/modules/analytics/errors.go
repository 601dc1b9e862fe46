package analytics

import (
	"fmt"
	"strings"

	"github.com/aristath/horizon/internal/domain"
)

// Error records which step of a request failed and on what data
type Error struct {
	Op           string
	PortfolioID  string
	InstrumentID string
	Range        domain.DateRange
	Err          error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.PortfolioID != "" {
		fmt.Fprintf(&b, " portfolio=%s", e.PortfolioID)
	}
	if e.InstrumentID != "" {
		fmt.Fprintf(&b, " instrument=%s", e.InstrumentID)
	}
	if !e.Range.Start.IsZero() || !e.Range.End.IsZero() {
		fmt.Fprintf(&b, " range=%s", e.Range)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (r *request) fail(op, instrumentID string, err error) error {
	return &Error{Op: op, PortfolioID: r.portfolioID, InstrumentID: instrumentID, Range: r.rng, Err: err}
}
