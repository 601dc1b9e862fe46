package cli

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/aristath/horizon/internal/modules/allocation"
	"github.com/aristath/horizon/internal/modules/analytics"
)

type savingsCmd struct {
	app     *App
	target  float64
	present float64
	years   int
	rate    float64
	annual  bool
	asJSON  bool
}

func (*savingsCmd) Name() string     { return "required-savings" }
func (*savingsCmd) Synopsis() string { return "compute the contribution needed to reach a target" }
func (*savingsCmd) Usage() string {
	return `horizon required-savings -target amount -years n [-present value] [-return r] [-annual] [-json]

  Computes the level monthly (or annual) contribution that grows the
  present value to the target. Needs no database.
`
}

func (c *savingsCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.target, "target", 0, "target amount")
	f.Float64Var(&c.present, "present", 0, "value already saved")
	f.IntVar(&c.years, "years", 0, "years to the target")
	f.Float64Var(&c.rate, "return", 0.05, "annual return")
	f.BoolVar(&c.annual, "annual", false, "contribute yearly instead of monthly")
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of markdown")
}

func (c *savingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	plan, err := allocation.RequiredSavings(c.target, c.present, c.years, c.rate, !c.annual)
	if err != nil {
		return c.app.usage("%v", err)
	}

	if c.asJSON {
		err = c.app.printJSON(plan)
	} else {
		err = c.app.printMarkdown(analytics.SavingsMarkdown(plan))
	}
	if err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}
