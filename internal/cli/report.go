package cli

import (
	"context"
	"flag"
	"time"

	"github.com/google/subcommands"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/internal/modules/analytics"
)

type reportCmd struct {
	app       *App
	portfolio string
	end       string
	lookback  int
	benchmark string
	frequency string
	rf        float64
	asJSON    bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display a performance and risk report of a portfolio" }
func (*reportCmd) Usage() string {
	return `horizon report -p <portfolio> [-d <date>] [-lookback days] [-benchmark id] [-frequency daily|monthly] [-json]

  Displays returns, risk-adjusted ratios, drawdown, VaR and exposure.
  Flags left unset use the configured analytics defaults.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "portfolio id")
	f.StringVar(&c.end, "d", "", "end date of the report (YYYY-MM-DD, defaults to today)")
	f.IntVar(&c.lookback, "lookback", 0, "lookback in calendar days")
	f.StringVar(&c.benchmark, "benchmark", "", "benchmark instrument id")
	f.StringVar(&c.frequency, "frequency", "", "return frequency (daily, monthly)")
	f.Float64Var(&c.rf, "rf", -1, "annual risk-free rate")
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of markdown")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return c.app.usage("-p is required")
	}
	var end time.Time
	if c.end != "" {
		var err error
		if end, err = time.Parse(time.DateOnly, c.end); err != nil {
			return c.app.usage("invalid date %q: %v", c.end, err)
		}
	}

	container, err := c.app.open(ctx)
	if err != nil {
		return c.app.fail(err)
	}

	params := container.Analytics.Defaults()
	if c.lookback > 0 {
		params.LookbackDays = c.lookback
	}
	if c.benchmark != "" {
		params.BenchmarkID = c.benchmark
	}
	if c.frequency != "" {
		params.Frequency = domain.Frequency(c.frequency)
	}
	if c.rf >= 0 {
		params.RiskFreeRate = c.rf
	}

	report, err := container.Analytics.Report(ctx, analytics.ReportRequest{
		PortfolioID: c.portfolio,
		Params:      params,
		End:         end,
	})
	if err != nil {
		return c.app.fail(err)
	}

	if c.asJSON {
		err = c.app.printJSON(report)
	} else {
		err = c.app.printMarkdown(report.Markdown())
	}
	if err != nil {
		return c.app.fail(err)
	}
	return subcommands.ExitSuccess
}
