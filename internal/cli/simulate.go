package cli

import (
	"context"
	"flag"
	"math"
	"strconv"

	"github.com/google/subcommands"

	"github.com/aristath/horizon/internal/modules/analytics"
)

// optionalFloat is a float flag that remembers whether it was set
type optionalFloat struct {
	value *float64
}

func (o *optionalFloat) String() string {
	if o.value == nil {
		return ""
	}
	return formatFloat(*o.value)
}

func (o *optionalFloat) Set(s string) error {
	v, err := parseFloat(s)
	if err != nil {
		return err
	}
	o.value = &v
	return nil
}

type simulateCmd struct {
	app          *App
	portfolio    string
	distribution string
	years        int
	trials       int
	seed         int64
	monthly      float64
	target       float64
	start        optionalFloat
	expected     optionalFloat
	volatility   optionalFloat
	constant     optionalFloat
	asJSON       bool
}

func (*simulateCmd) Name() string     { return "simulate" }
func (*simulateCmd) Synopsis() string { return "run a Monte Carlo projection" }
func (*simulateCmd) Usage() string {
	return `horizon simulate -model parametric|bootstrap|constant [-p <portfolio>] [-years n] [-trials n]
                 [-start value] [-monthly amount] [-target value]
                 [-return r -volatility v] [-constant r] [-json]

  Projects the portfolio value month by month. The bootstrap model and a
  parametric model without -return/-volatility draw on the portfolio's
  monthly return history.
`
}

func (c *simulateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "portfolio id")
	f.StringVar(&c.distribution, "model", "", "return model (parametric, bootstrap, constant)")
	f.IntVar(&c.years, "years", 10, "horizon in years")
	f.IntVar(&c.trials, "trials", 0, "number of trials (defaults to the configured value)")
	f.Int64Var(&c.seed, "seed", math.MinInt64, "random seed (defaults to the configured value)")
	f.Float64Var(&c.monthly, "monthly", 0, "monthly contribution")
	f.Float64Var(&c.target, "target", 0, "target value for the success probability")
	f.Var(&c.start, "start", "starting value (defaults to the portfolio value)")
	f.Var(&c.expected, "return", "annual expected return (parametric)")
	f.Var(&c.volatility, "volatility", "annual volatility (parametric)")
	f.Var(&c.constant, "constant", "annual return (constant)")
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of markdown")
}

func (c *simulateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.distribution == "" {
		return c.app.usage("-model is required")
	}

	container, err := c.app.open(ctx)
	if err != nil {
		return c.app.fail(err)
	}

	req, err := analytics.NewSimulationRequest(container.Analytics.Defaults())
	if err != nil {
		return c.app.fail(err)
	}
	req.PortfolioID = c.portfolio
	req.Distribution = c.distribution
	req.Years = c.years
	req.MonthlyContribution = c.monthly
	req.TargetValue = c.target
	req.StartingValue = c.start.value
	req.ExpectedReturn = c.expected.value
	req.Volatility = c.volatility.value
	req.ConstantReturn = c.constant.value
	if c.trials > 0 {
		req.Trials = c.trials
	}
	if c.seed != math.MinInt64 {
		req.Seed = c.seed
	}

	result, err := container.Analytics.Simulate(ctx, req)
	if err != nil {
		return c.app.fail(err)
	}

	if c.asJSON {
		err = c.app.printJSON(result)
	} else {
		err = c.app.printMarkdown(analytics.SimulationMarkdown(result))
	}
	if err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
