package cli

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/aristath/horizon/internal/modules/allocation"
	"github.com/aristath/horizon/internal/modules/analytics"
)

type allocationCmd struct {
	app       *App
	portfolio string
	tolerance float64
	asJSON    bool
}

func (*allocationCmd) Name() string     { return "allocation" }
func (*allocationCmd) Synopsis() string { return "compare a portfolio's allocation with the recommended one" }
func (*allocationCmd) Usage() string {
	return `horizon allocation -p <portfolio> [-risk 0.5] [-json]

  Groups holdings by instrument kind and suggests rebalancing trades
  toward the allocation recommended for the risk tolerance (0 to 1).
`
}

func (c *allocationCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "portfolio id")
	f.Float64Var(&c.tolerance, "risk", 0.5, "risk tolerance between 0 and 1")
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of markdown")
}

func (c *allocationCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return c.app.usage("-p is required")
	}
	if _, err := allocation.RecommendedAllocation(c.tolerance); err != nil {
		return c.app.usage("%v", err)
	}

	container, err := c.app.open(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	analysis, err := container.Analytics.Allocation(ctx, c.portfolio, c.tolerance)
	if err != nil {
		return c.app.fail(err)
	}

	if c.asJSON {
		err = c.app.printJSON(analysis)
	} else {
		err = c.app.printMarkdown(analytics.AllocationMarkdown(analysis))
	}
	if err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}
