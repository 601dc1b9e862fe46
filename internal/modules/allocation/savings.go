package allocation

import (
	"fmt"
	"math"

	"github.com/aristath/horizon/pkg/formulas"
)

// SavingsPlan is the contribution needed to reach a target
type SavingsPlan struct {
	TargetAmount  float64 `json:"target_amount"`
	PresentValue  float64 `json:"present_value"`
	Years         int     `json:"years"`
	AnnualReturn  float64 `json:"annual_return"`
	Monthly       bool    `json:"monthly"`
	Periods       int     `json:"periods"`
	Contribution  float64 `json:"contribution"`
	TotalInvested float64 `json:"total_invested"`
}

// RequiredSavings computes the level contribution (monthly or annual) that
// grows presentValue to targetAmount in the given years at annualReturn,
// compounding at the nominal rate per period.
func RequiredSavings(targetAmount, presentValue float64, years int, annualReturn float64, monthly bool) (*SavingsPlan, error) {
	if years <= 0 {
		return nil, fmt.Errorf("years must be positive, got %d", years)
	}
	if targetAmount < 0 || presentValue < 0 {
		return nil, fmt.Errorf("target and present value must be non-negative")
	}
	if annualReturn <= -1 || math.IsNaN(annualReturn) || math.IsInf(annualReturn, 0) {
		return nil, fmt.Errorf("annual return %v is not valid", annualReturn)
	}

	periods, rate := years, annualReturn
	if monthly {
		periods, rate = years*12, annualReturn/12
	}

	contribution := formulas.RequiredContribution(targetAmount, presentValue, rate, periods)
	if contribution == nil {
		return nil, fmt.Errorf("no finite contribution reaches %v", targetAmount)
	}

	return &SavingsPlan{
		TargetAmount:  targetAmount,
		PresentValue:  presentValue,
		Years:         years,
		AnnualReturn:  annualReturn,
		Monthly:       monthly,
		Periods:       periods,
		Contribution:  round(*contribution, 2),
		TotalInvested: round(presentValue+*contribution*float64(periods), 2),
	}, nil
}

// CompoundInterest grows principal at an annual rate compounded compoundsPerYear times.
func CompoundInterest(principal, annualRate float64, years, compoundsPerYear int) float64 {
	if compoundsPerYear <= 0 {
		compoundsPerYear = 1
	}
	n := float64(compoundsPerYear)
	return principal * math.Pow(1+annualRate/n, n*float64(years))
}
