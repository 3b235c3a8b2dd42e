// Command countbench benchmarks counting sort under its sequential,
// parallel, and device-offloaded strategies over a sweep of input
// sizes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/exascience/countbench/config"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	cfg        config.Config
	log        *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:           "countbench",
		Short:         "Benchmark counting sort across execution strategies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.Flags())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (yaml, json or toml)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "console", "log format: console or json")
	pf.String("store", "", "SQLite database recording completed runs")

	root.AddCommand(newRunCommand(a), newSweepCommand(a), newInfoCommand(a), newHistoryCommand(a))
	return root
}

func (a *app) load(flags *pflag.FlagSet) error {
	cfg, err := config.Load(a.configPath, flags)
	if err != nil {
		return err
	}
	log, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "countbench:", err)
		os.Exit(1)
	}
}
