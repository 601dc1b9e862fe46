package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/aristath/horizon/internal/modules/portfolio"
)

type importCmd struct {
	app  *App
	file string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import instruments, prices and transactions from a YAML seed" }
func (*importCmd) Usage() string {
	return `horizon import -f <seed.yaml>

  Imports a seed document. Transactions are applied in date order and
  a sell larger than the holding aborts the import.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "", "path of the YAML seed file")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		return c.app.usage("-f is required")
	}
	file, err := os.Open(c.file)
	if err != nil {
		return c.app.fail(err)
	}
	defer file.Close()

	seed, err := portfolio.ReadSeed(file)
	if err != nil {
		return c.app.fail(err)
	}

	container, err := c.app.open(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	summary, err := container.Repository.Import(ctx, seed)
	if err != nil {
		return c.app.fail(err)
	}

	fmt.Fprintf(c.app.Out, "imported %d instruments, %d prices, %d transactions\n",
		summary.Instruments, summary.Prices, summary.Transactions)
	return subcommands.ExitSuccess
}
