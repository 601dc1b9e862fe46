package formulas

// HerfindahlIndex calculates the Herfindahl-Hirschman concentration index
//
// Formula: HHI = Σ w_i²
//
// Ranges from 1/N for an equal-weight portfolio to 1.0 for a single holding.
func HerfindahlIndex(weights []float64) float64 {
	var hhi float64
	for _, w := range weights {
		hhi += w * w
	}
	return hhi
}

// WeightedAverage returns Σ w_i·v_i / Σ w_i, or nil when the weights sum to zero.
func WeightedAverage(values, weights []float64) *float64 {
	if len(values) != len(weights) {
		return nil
	}

	var sum, total float64
	for i, v := range values {
		sum += v * weights[i]
		total += weights[i]
	}
	if total == 0 {
		return nil
	}
	avg := sum / total
	return &avg
}
