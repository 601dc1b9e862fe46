package performance

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/aristath/horizon/internal/domain"
)

// RollingVolatility returns the annualized sample volatility over a sliding
// window of usable returns, one point per window end.
func RollingVolatility(rs domain.ReturnSeries, window int) ([]domain.ValuePoint, error) {
	if window < 2 {
		return nil, fmt.Errorf("rolling window must be >= 2, got %d", window)
	}
	values := rs.Values()
	if len(values) < window {
		return nil, &domain.InsufficientDataError{Op: "rolling volatility", Required: window, Got: len(values)}
	}
	times := usableTimes(rs)

	// talib reports the population deviation; rescale to the n-1 estimator
	population := talib.StdDev(values, window, 1.0)
	scale := math.Sqrt(float64(window)/float64(window-1)) * math.Sqrt(float64(rs.Frequency.PeriodsPerYear()))

	out := make([]domain.ValuePoint, 0, len(values)-window+1)
	for i := window - 1; i < len(values); i++ {
		out = append(out, domain.ValuePoint{Time: times[i], Value: population[i] * scale})
	}
	return out, nil
}
