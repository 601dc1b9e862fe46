package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Typed errors below match them with errors.Is.
var (
	ErrInsufficientData            = errors.New("insufficient data")
	ErrSeriesAlignment             = errors.New("series alignment mismatch")
	ErrEmptyPortfolio              = errors.New("empty portfolio")
	ErrPartialData                 = errors.New("partial data")
	ErrInvalidSimulationParameters = errors.New("invalid simulation parameters")

	ErrUnorderedSeries     = errors.New("price series is not strictly ordered")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrInvalidWeights      = errors.New("invalid portfolio weights")
	ErrMissingLiquidityTag = errors.New("missing liquidity tag")
	ErrNotFound            = errors.New("not found")
)

// InsufficientDataError reports too few observations for a statistic
type InsufficientDataError struct {
	Op       string
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need %d observations, got %d", e.Op, e.Required, e.Got)
}

// Is matches ErrInsufficientData
func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// SeriesAlignmentError reports series whose timestamps or shapes differ
type SeriesAlignmentError struct {
	Left   string
	Right  string
	Index  int
	Reason string
}

func (e *SeriesAlignmentError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("series alignment mismatch between %s and %s at index %d: %s", e.Left, e.Right, e.Index, e.Reason)
	}
	return fmt.Sprintf("series alignment mismatch between %s and %s: %s", e.Left, e.Right, e.Reason)
}

// Is matches ErrSeriesAlignment
func (e *SeriesAlignmentError) Is(target error) bool { return target == ErrSeriesAlignment }

// EmptyPortfolioError reports a portfolio without holdings
type EmptyPortfolioError struct {
	PortfolioID string
}

func (e *EmptyPortfolioError) Error() string {
	if e.PortfolioID == "" {
		return "empty portfolio"
	}
	return fmt.Sprintf("portfolio %s has no holdings", e.PortfolioID)
}

// Is matches ErrEmptyPortfolio
func (e *EmptyPortfolioError) Is(target error) bool { return target == ErrEmptyPortfolio }

// PartialDataError reports the instruments whose series could not be fetched
type PartialDataError struct {
	Failed map[string]error
	Total  int
}

func (e *PartialDataError) Error() string {
	ids := e.Instruments()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s: %v", id, e.Failed[id])
	}
	return fmt.Sprintf("partial data: %d of %d series failed (%s)", len(ids), e.Total, strings.Join(parts, "; "))
}

// Is matches ErrPartialData
func (e *PartialDataError) Is(target error) bool { return target == ErrPartialData }

// Instruments returns the failed instrument ids in sorted order
func (e *PartialDataError) Instruments() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InvalidSimulationParametersError reports a rejected simulation configuration
type InvalidSimulationParametersError struct {
	Field  string
	Reason string
}

func (e *InvalidSimulationParametersError) Error() string {
	return fmt.Sprintf("invalid simulation parameters: %s %s", e.Field, e.Reason)
}

// Is matches ErrInvalidSimulationParameters
func (e *InvalidSimulationParametersError) Is(target error) bool {
	return target == ErrInvalidSimulationParameters
}
