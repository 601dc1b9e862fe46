package formulas

// Drawdown describes the deepest peak-to-trough decline of a value path.
type Drawdown struct {
	Max         float64 `json:"max"`
	PeakIndex   int     `json:"peak_index"`
	TroughIndex int     `json:"trough_index"`
}

// CalculateMaxDrawdown scans a value path with a running peak
//
// Formula: drawdown_t = (peak_t − value_t) / peak_t, result = max_t drawdown_t
//
// Ties keep the earliest occurrence. The result is bounded to [0, 1].
// Returns nil when fewer than two values exist.
func CalculateMaxDrawdown(values []float64) *Drawdown {
	if len(values) < 2 {
		return nil
	}

	result := &Drawdown{}
	peak := values[0]
	peakIdx := 0

	for i, v := range values {
		if v > peak {
			peak = v
			peakIdx = i
		}
		if peak <= 0 {
			continue
		}

		dd := Clamp((peak-v)/peak, 0, 1)
		if dd > result.Max {
			result.Max = dd
			result.PeakIndex = peakIdx
			result.TroughIndex = i
		}
	}

	return result
}
