// Package simulation projects portfolio value forward with Monte Carlo trials.
package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/pkg/formulas"
)

const (
	// DefaultBatchSize is the number of trials run between cancellation checks
	DefaultBatchSize = 512

	// streamSeq is the PCG stream selector shared by all trials; the per-trial
	// state seed is Seed + trial index.
	streamSeq uint64 = 0x9e3779b97f4a7c15
)

// DefaultPercentiles are reported when Params.Percentiles is empty
var DefaultPercentiles = []float64{5, 25, 50, 75, 95}

// Params configures one simulation
type Params struct {
	StartingValue float64
	Contributions Schedule // nil means no contributions
	Model         Model
	Horizon       int // periods
	Trials        int
	Target        float64
	Seed          int64
	Percentiles   []float64 // 0..100
	RecordPaths   bool
}

// Simulator runs Monte Carlo projections on a worker pool
type Simulator struct {
	pool      *WorkerPool
	batchSize int
	log       zerolog.Logger
}

// NewSimulator creates a simulator with the given worker count (0 sizes the
// pool to the available cores).
func NewSimulator(workers int, log zerolog.Logger) *Simulator {
	return &Simulator{
		pool:      NewWorkerPool(workers),
		batchSize: DefaultBatchSize,
		log:       log.With().Str("component", "simulator").Logger(),
	}
}

// WithBatchSize overrides the number of trials between cancellation checks.
func (s *Simulator) WithBatchSize(n int) *Simulator {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Validate checks parameters without running any trial.
func Validate(p Params) error {
	if p.Horizon <= 0 {
		return invalid("horizon", fmt.Sprintf("%d must be positive", p.Horizon))
	}
	if p.Trials <= 0 {
		return invalid("trials", fmt.Sprintf("%d must be positive", p.Trials))
	}
	if !finite(p.StartingValue) {
		return invalid("starting_value", "must be finite")
	}
	if !finite(p.Target) {
		return invalid("target", "must be finite")
	}
	for _, pct := range p.Percentiles {
		if !finite(pct) || pct < 0 || pct > 100 {
			return invalid("percentiles", fmt.Sprintf("%v outside [0, 100]", pct))
		}
	}
	if err := validateModel(p.Model); err != nil {
		return err
	}
	return validateSchedule(p.Contributions, p.Horizon)
}

// Run simulates p.Trials independent paths of p.Horizon periods:
//
//	value_{t+1} = value_t × (1 + r_t) + contribution_t
//
// Trial i draws from its own generator seeded with p.Seed+i, so a fixed seed
// gives identical results whatever the pool size. The context is checked
// between batches of trials.
func (s *Simulator) Run(ctx context.Context, p Params) (*domain.SimulationResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	percentiles := p.Percentiles
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}

	started := time.Now()
	draw := newSampler(p.Model)
	flows := contributions(p.Contributions, p.Horizon)

	run := func(trial int) trialOutcome {
		rng := rand.New(rand.NewPCG(uint64(p.Seed+int64(trial)), streamSeq))
		return simulatePath(rng, draw, p.StartingValue, flows, p.RecordPaths)
	}

	outcomes := make([]trialOutcome, 0, p.Trials)
	for first := 0; first < p.Trials; first += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("simulation cancelled after %d of %d trials: %w", first, p.Trials, err)
		}
		count := min(s.batchSize, p.Trials-first)
		outcomes = append(outcomes, s.pool.RunBatch(first, count, run)...)
	}

	for i, o := range outcomes {
		if !finite(o.terminal) {
			return nil, invalid("model", fmt.Sprintf("trial %d left the float range within %d periods", i, p.Horizon))
		}
	}

	result := summarize(p, percentiles, outcomes)
	if !finite(result.Mean) || !finite(result.StdDev) {
		return nil, invalid("model", "terminal values overflow the float range")
	}

	s.log.Debug().
		Str("model", result.Model).
		Int("trials", p.Trials).
		Int("horizon", p.Horizon).
		Int("workers", s.pool.Size()).
		Float64("success_probability", result.SuccessProbability).
		Dur("duration", time.Since(started)).
		Msg("Simulation completed")

	return result, nil
}

// simulatePath compounds one trial. The path holds horizon+1 values starting
// with the starting value.
func simulatePath(rng *rand.Rand, draw sampler, start float64, flows []float64, record bool) trialOutcome {
	var path []float64
	if record {
		path = make([]float64, 0, len(flows)+1)
		path = append(path, start)
	}

	value := start
	for _, contribution := range flows {
		value = value*(1+draw(rng)) + contribution
		if record {
			path = append(path, value)
		}
	}
	return trialOutcome{terminal: value, path: path}
}

func summarize(p Params, percentiles []float64, outcomes []trialOutcome) *domain.SimulationResult {
	terminal := make([]float64, len(outcomes))
	successes := 0
	for i, o := range outcomes {
		terminal[i] = o.terminal
		if o.terminal >= p.Target {
			successes++
		}
	}

	result := &domain.SimulationResult{
		Model:              p.Model.Name(),
		Trials:             p.Trials,
		Horizon:            p.Horizon,
		Seed:               p.Seed,
		Target:             p.Target,
		SuccessProbability: float64(successes) / float64(len(outcomes)),
		Mean:               formulas.Mean(terminal),
		StdDev:             formulas.StdDev(terminal),
		Percentiles:        percentileValues(terminal, percentiles),
	}

	if p.RecordPaths {
		result.TerminalValues = terminal
		result.Paths = make([][]float64, len(outcomes))
		for i, o := range outcomes {
			result.Paths[i] = o.path
		}
		result.Bands = bands(result.Paths, p.Horizon, percentiles)
	}
	return result
}

// percentileValues reads percentiles off a sorted copy of values.
func percentileValues(values []float64, percentiles []float64) []domain.PercentileValue {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	out := make([]domain.PercentileValue, len(percentiles))
	for i, pct := range percentiles {
		out[i] = domain.PercentileValue{
			Percentile: pct,
			Value:      stat.Quantile(pct/100, stat.Empirical, sorted, nil),
		}
	}
	return out
}

func bands(paths [][]float64, horizon int, percentiles []float64) []domain.Band {
	out := make([]domain.Band, 0, horizon)
	column := make([]float64, len(paths))
	for t := 1; t <= horizon; t++ {
		for i, path := range paths {
			column[i] = path[t]
		}
		out = append(out, domain.Band{Period: t, Values: percentileValues(column, percentiles)})
	}
	return out
}

func invalid(field, reason string) error {
	return &domain.InvalidSimulationParametersError{Field: field, Reason: reason}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
