// housei is the terminal admin console for Housei devices. It keeps the
// signed-in admin in a local session file and talks to the device store
// directly.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var sessionPath string
	var logLevel string

	flagSet := pflag.NewFlagSet("housei", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "housei.yaml", "path to the YAML configuration file")
	flagSet.StringVar(&sessionPath, "session-file", "", "where the signed-in admin is kept (default: ~/.housei/storage.json)")
	flagSet.StringVar(&logLevel, "log-level", "", "override the configured log level")
	flagSet.SetInterspersed(false)
	flagSet.Usage = func() { printUsage(flagSet) }

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	args := flagSet.Args()
	if len(args) == 0 {
		printUsage(flagSet)
		return errors.New("a command is required")
	}

	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(flagSet)
		return fmt.Errorf("unknown command %q", args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newConsole(configPath, sessionPath, logLevel)
	if err != nil {
		return err
	}
	defer c.close()

	return cmd.run(ctx, c, args[1:])
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `housei: Housei admin console

Usage:
  housei [flags] <command> [command flags]

Commands:
`)
	for _, name := range commandOrder {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n%s", flagSet.FlagUsages())
}
