package formulas

import "math"

// FutureValue compounds a present value with a level contribution paid at the
// end of each period.
//
// Formula: FV = PV·(1+r)^n + C·((1+r)^n − 1)/r   (r = 0: PV + C·n)
func FutureValue(present, ratePerPeriod float64, periods int, contribution float64) float64 {
	n := float64(periods)
	if ratePerPeriod == 0 {
		return present + contribution*n
	}
	growth := math.Pow(1+ratePerPeriod, n)
	return present*growth + contribution*(growth-1)/ratePerPeriod
}

// RequiredContribution solves FutureValue for the level contribution that
// reaches target after the given number of periods. A result of 0 means the
// present value already compounds past the target.
//
// Returns nil when periods is not positive.
func RequiredContribution(target, present, ratePerPeriod float64, periods int) *float64 {
	if periods <= 0 {
		return nil
	}

	n := float64(periods)
	var c float64
	if ratePerPeriod == 0 {
		c = (target - present) / n
	} else {
		growth := math.Pow(1+ratePerPeriod, n)
		c = (target - present*growth) * ratePerPeriod / (growth - 1)
	}
	c = math.Max(c, 0)
	return Finite(c)
}
