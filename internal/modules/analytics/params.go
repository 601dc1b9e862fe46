package analytics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/aristath/horizon/internal/domain"
)

// ErrInvalidParams is returned for parameters outside their documented range
var ErrInvalidParams = errors.New("invalid analytics parameters")

var validate = validator.New()

// Params is the configuration surface of a report or simulation. Every field
// has a documented default (applied by DefaultParams) and range.
type Params struct {
	// RiskFreeRate is the annual risk-free rate used by Sharpe and Sortino
	RiskFreeRate float64 `json:"risk_free_rate" yaml:"risk_free_rate" default:"0.02" validate:"gte=-0.05,lte=0.2"`
	// BenchmarkID enables beta against that instrument; empty disables it
	BenchmarkID string `json:"benchmark_id" yaml:"benchmark_id"`
	// Confidence is the VaR confidence level
	Confidence float64 `json:"confidence" yaml:"confidence" default:"0.95" validate:"gt=0.5,lt=1"`
	// Trials is the number of Monte Carlo trials
	Trials int `json:"trials" yaml:"trials" default:"1000" validate:"gte=1,lte=100000"`
	// Seed makes simulations reproducible
	Seed int64 `json:"seed" yaml:"seed" default:"42"`
	// Distribution selects the simulation model. It has no default and must be
	// chosen explicitly for every simulation.
	Distribution string `json:"distribution" yaml:"distribution" validate:"omitempty,oneof=parametric bootstrap constant"`
	// Frequency is the sampling frequency of the report's series
	Frequency domain.Frequency `json:"frequency" yaml:"frequency" default:"daily" validate:"oneof=daily monthly"`
	// LookbackDays is the history window ending at the report date
	LookbackDays int `json:"lookback_days" yaml:"lookback_days" default:"365" validate:"gte=2,lte=36500"`
}

// DefaultParams returns Params with every documented default applied.
// Callers decode requests on top of it so that explicit zero values survive.
func DefaultParams() Params {
	var p Params
	if err := defaults.Set(&p); err != nil {
		// struct tags are static; a failure here is a programming error
		panic(fmt.Sprintf("analytics defaults: %v", err))
	}
	return p
}

// Validate checks every parameter against its range.
func (p Params) Validate() error {
	return validateStruct(p)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be < %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
