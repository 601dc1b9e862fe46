// Package main is the horizon command line.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/aristath/horizon/internal/cli"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	app := cli.New(os.Stdout, os.Stderr)
	app.Register(commander)

	flag.BoolVar(&app.Plain, "plain", false, "print markdown without terminal styling")
	flag.Parse()

	status := commander.Execute(context.Background())
	app.Close()
	os.Exit(int(status))
}
