package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/creasty/defaults"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/internal/modules/performance"
	"github.com/aristath/horizon/internal/modules/simulation"
)

// SimulationPeriodsPerYear is the step of a projection: one month
const SimulationPeriodsPerYear = 12

// SimulationRequest asks for a Monte Carlo projection. Annual rates are
// converted to monthly periods. With a PortfolioID, the starting value and any
// missing model inputs are taken from the portfolio's monthly history.
type SimulationRequest struct {
	Params
	PortfolioID string `json:"-"`
	// StartingValue defaults to the portfolio value (0 without a portfolio)
	StartingValue       *float64        `json:"starting_value"`
	Years               int             `json:"years" default:"10" validate:"gte=1,lte=100"`
	MonthlyContribution float64         `json:"monthly_contribution"`
	ContributionEvents  map[int]float64 `json:"contribution_events"`
	TargetValue         float64         `json:"target_value" validate:"gte=0"`
	// ExpectedReturn and Volatility are annual parameters of the parametric model
	ExpectedReturn *float64 `json:"expected_return" validate:"omitempty,gt=-1,lte=10"`
	Volatility     *float64 `json:"volatility" validate:"omitempty,gte=0,lte=10"`
	// ConstantReturn is the annual return of the constant model
	ConstantReturn *float64  `json:"constant_return" validate:"omitempty,gt=-1,lte=10"`
	Percentiles    []float64 `json:"percentiles" validate:"dive,gte=0,lte=100"`
	RecordPaths    bool      `json:"record_paths"`
	End            time.Time `json:"-"`
}

// NewSimulationRequest returns a request carrying params unchanged, with the
// request-level defaults applied to the remaining fields.
func NewSimulationRequest(params Params) (SimulationRequest, error) {
	var req SimulationRequest
	if err := defaults.Set(&req); err != nil {
		return SimulationRequest{}, fmt.Errorf("simulation defaults: %w", err)
	}
	req.Params = params
	return req, nil
}

// Simulate runs a Monte Carlo projection. The distribution must be chosen
// explicitly; there is no default model.
func (f *Facade) Simulate(ctx context.Context, req SimulationRequest) (result *domain.SimulationResult, err error) {
	started := time.Now()
	defer func() { f.observe("simulate", started, err) }()

	if err := validateStruct(req); err != nil {
		return nil, &Error{Op: "validate parameters", PortfolioID: req.PortfolioID, Err: err}
	}
	if req.Distribution == "" {
		return nil, &Error{Op: "validate parameters", PortfolioID: req.PortfolioID, Err: &domain.InvalidSimulationParametersError{
			Field:  "distribution",
			Reason: "must be chosen explicitly: parametric, bootstrap or constant",
		}}
	}

	r, err := f.newRequest(req.PortfolioID, req.Params, req.End)
	if err != nil {
		return nil, err
	}

	history, err := f.simulationHistory(ctx, r, req)
	if err != nil {
		return nil, err
	}

	model, err := buildModel(req, history)
	if err != nil {
		return nil, r.fail("build simulation model", "", err)
	}

	start := 0.0
	switch {
	case req.StartingValue != nil:
		start = *req.StartingValue
	case history != nil:
		start = history.value
	case req.PortfolioID != "":
		start, err = f.sources.Holdings.GetPortfolioValue(ctx, req.PortfolioID)
		if err != nil {
			return nil, r.fail("load portfolio value", "", err)
		}
	}

	var schedule simulation.Schedule = simulation.FixedContribution{Amount: req.MonthlyContribution}
	if len(req.ContributionEvents) > 0 {
		schedule = simulation.ScheduledContributions{Base: req.MonthlyContribution, Events: req.ContributionEvents}
	}

	result, err = f.simulator.Run(ctx, simulation.Params{
		StartingValue: start,
		Contributions: schedule,
		Model:         model,
		Horizon:       req.Years * SimulationPeriodsPerYear,
		Trials:        req.Trials,
		Target:        req.TargetValue,
		Seed:          req.Seed,
		Percentiles:   req.Percentiles,
		RecordPaths:   req.RecordPaths,
	})
	if err != nil {
		return nil, r.fail("simulate", "", err)
	}

	f.recorder.ObserveSimulation(result.Model, result.Trials, time.Since(started))
	f.log.Info().
		Str("request_id", r.id).
		Str("portfolio", r.portfolioID).
		Str("model", result.Model).
		Int("trials", result.Trials).
		Float64("success_probability", result.SuccessProbability).
		Msg("Simulation completed")

	return result, nil
}

// simulationHistory loads the portfolio's monthly returns when the model needs them.
func (f *Facade) simulationHistory(ctx context.Context, r *request, req SimulationRequest) (*snapshot, error) {
	needsHistory := req.Distribution == simulation.DistributionBootstrap ||
		(req.Distribution == simulation.DistributionParametric && (req.ExpectedReturn == nil || req.Volatility == nil))
	if !needsHistory || req.PortfolioID == "" {
		return nil, nil
	}
	return f.load(ctx, r, domain.FrequencyMonthly)
}

func buildModel(req SimulationRequest, history *snapshot) (simulation.Model, error) {
	switch req.Distribution {
	case simulation.DistributionConstant:
		if req.ConstantReturn == nil {
			return nil, &domain.InvalidSimulationParametersError{Field: "constant_return", Reason: "is required for the constant model"}
		}
		return simulation.Constant{Return: periodicRate(*req.ConstantReturn)}, nil

	case simulation.DistributionBootstrap:
		if history == nil {
			return nil, &domain.InvalidSimulationParametersError{Field: "portfolio_id", Reason: "bootstrap needs a portfolio history"}
		}
		return simulation.Bootstrap{Returns: history.portfolio.Values()}, nil

	case simulation.DistributionParametric:
		annualReturn, annualVol := req.ExpectedReturn, req.Volatility
		if annualReturn == nil || annualVol == nil {
			if history == nil {
				return nil, &domain.InvalidSimulationParametersError{
					Field:  "expected_return",
					Reason: "expected_return and volatility are required without a portfolio history",
				}
			}
			estimate, err := performance.Calculate(history.portfolio, performance.Options{})
			if err != nil {
				return nil, err
			}
			if annualReturn == nil {
				annualReturn = estimate.AnnualizedReturn
			}
			if annualVol == nil {
				annualVol = estimate.Volatility
			}
			if annualReturn == nil || annualVol == nil {
				return nil, &domain.InvalidSimulationParametersError{Field: "volatility", Reason: "portfolio history yields no estimate"}
			}
		}
		return simulation.ParametersFromAnnual(*annualReturn, *annualVol, SimulationPeriodsPerYear), nil
	}
	return nil, &domain.InvalidSimulationParametersError{Field: "distribution", Reason: "unsupported " + req.Distribution}
}

func periodicRate(annual float64) float64 {
	if annual == 0 {
		return 0
	}
	return math.Pow(1+annual, 1.0/SimulationPeriodsPerYear) - 1
}
