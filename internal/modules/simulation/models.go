package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Model is the per-period return distribution a simulation draws from.
// The set of variants is closed: LogNormal, Bootstrap and Constant.
type Model interface {
	// Name is the distribution name used in requests and results
	Name() string
	isModel()
}

// LogNormal draws 1+r from a log-normal distribution with the given arithmetic
// mean and standard deviation of r per period
type LogNormal struct {
	Mean       float64 `json:"mean"`
	Volatility float64 `json:"volatility"`
}

// Bootstrap resamples historical periodic returns with replacement
type Bootstrap struct {
	Returns []float64 `json:"returns"`
}

// Constant returns the same value every period
type Constant struct {
	Return float64 `json:"return"`
}

// Distribution names
const (
	DistributionParametric = "parametric"
	DistributionBootstrap  = "bootstrap"
	DistributionConstant   = "constant"
)

func (LogNormal) Name() string { return DistributionParametric }
func (Bootstrap) Name() string { return DistributionBootstrap }
func (Constant) Name() string  { return DistributionConstant }

func (LogNormal) isModel() {}
func (Bootstrap) isModel() {}
func (Constant) isModel()  {}

// sampler draws one periodic return
type sampler func(rng *rand.Rand) float64

// newSampler prepares the draw function of a validated model.
//
// For LogNormal the underlying normal parameters are matched to the moments of r:
//
//	sigma² = ln(1 + s²/(1+m)²)
//	mu     = ln(1+m) − sigma²/2
func newSampler(m Model) sampler {
	switch v := m.(type) {
	case LogNormal:
		growth := 1 + v.Mean
		sigma2 := math.Log1p(v.Volatility * v.Volatility / (growth * growth))
		sigma := math.Sqrt(sigma2)
		mu := math.Log(growth) - sigma2/2
		return func(rng *rand.Rand) float64 {
			return math.Exp(mu+sigma*rng.NormFloat64()) - 1
		}
	case Bootstrap:
		returns := v.Returns
		return func(rng *rand.Rand) float64 {
			return returns[rng.IntN(len(returns))]
		}
	case Constant:
		r := v.Return
		return func(*rand.Rand) float64 { return r }
	}
	return nil
}

func validateModel(m Model) error {
	switch v := m.(type) {
	case nil:
		return invalid("model", "is required")
	case LogNormal:
		if !finite(v.Mean) || v.Mean <= -1 {
			return invalid("model.mean", fmt.Sprintf("%v must be finite and above -1", v.Mean))
		}
		if !finite(v.Volatility) || v.Volatility <= 0 {
			return invalid("model.volatility", fmt.Sprintf("%v must be positive for log-normal sampling", v.Volatility))
		}
	case Bootstrap:
		if len(v.Returns) == 0 {
			return invalid("model.returns", "bootstrap sample is empty")
		}
		for i, r := range v.Returns {
			if !finite(r) || r < -1 {
				return invalid("model.returns", fmt.Sprintf("sample %d (%v) is not a valid return", i, r))
			}
		}
	case Constant:
		if !finite(v.Return) || v.Return < -1 {
			return invalid("model.return", fmt.Sprintf("%v is not a valid return", v.Return))
		}
	default:
		return invalid("model", fmt.Sprintf("unsupported model %T", m))
	}
	return nil
}

// ParametersFromAnnual converts an annual expected return and volatility into
// the per-period log-normal model for periodsPerYear periods.
func ParametersFromAnnual(annualReturn, annualVolatility float64, periodsPerYear int) LogNormal {
	ppy := float64(max(periodsPerYear, 1))
	return LogNormal{
		Mean:       math.Pow(1+annualReturn, 1/ppy) - 1,
		Volatility: annualVolatility / math.Sqrt(ppy),
	}
}
