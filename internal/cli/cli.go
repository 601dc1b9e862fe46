// Package cli implements the horizon command line: seed import, reports,
// simulations, allocation reviews and backups.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/aristath/horizon/internal/config"
	"github.com/aristath/horizon/internal/di"
	"github.com/aristath/horizon/pkg/logger"
)

// App holds what every command shares: output streams and a lazily wired container.
type App struct {
	Out   io.Writer
	Err   io.Writer
	Plain bool // print markdown without terminal styling

	load      func() (*config.Config, error)
	log       zerolog.Logger
	container *di.Container
}

// New creates an App that reads configuration from the environment.
func New(out, errOut io.Writer) *App {
	return &App{
		Out:  out,
		Err:  errOut,
		load: config.Load,
		log:  zerolog.Nop(),
	}
}

// Register adds the commands to c.
func (a *App) Register(c *subcommands.Commander) {
	c.Register(&importCmd{app: a}, "portfolio")

	c.Register(&reportCmd{app: a}, "analytics")
	c.Register(&simulateCmd{app: a}, "analytics")
	c.Register(&allocationCmd{app: a}, "analytics")
	c.Register(&savingsCmd{app: a}, "analytics")

	c.Register(&backupCmd{app: a}, "maintenance")
}

// open wires the container on first use.
func (a *App) open(ctx context.Context) (*di.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	cfg, err := a.load()
	if err != nil {
		return nil, err
	}
	a.log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true, Output: a.Err})

	container, err := di.Wire(ctx, cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.container = container
	return container, nil
}

// Close releases the container if one was opened.
func (a *App) Close() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close()
	a.container = nil
	return err
}

func (a *App) printMarkdown(md string) error {
	if a.Plain {
		_, err := io.WriteString(a.Out, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(a.Out, out)
	return err
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// fail reports err and returns the failure status.
func (a *App) fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(a.Err, "Error: %v\n", err)
	return subcommands.ExitFailure
}

// usage reports a flag error and returns the usage status.
func (a *App) usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(a.Err, "Error: "+format+"\n", args...)
	return subcommands.ExitUsageError
}
