package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/exascience/countbench/bench"
	"github.com/exascience/countbench/export"
	"github.com/exascience/countbench/internal/store"
	"github.com/exascience/countbench/strategy"
)

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [strategy...]",
		Short: "Run the benchmark sweep for the given strategies (default: all)",
		Long: `Run the benchmark sweep for each given strategy in turn and print the
mean time in microseconds per input size. Strategies are sequential,
parallel, and device. With --output, the results are written as CSV
to a file instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseStrategies(args)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), cmd, ids)
		},
	}
	f := cmd.Flags()
	f.Int("iterations", bench.DefaultIterations, "trials per size")
	f.Uint64("seed", bench.DefaultSeed, "seed of the input generator")
	f.Uint64("bound", bench.DefaultBound, "exclusive upper bound of input values")
	f.Int("sweep-limit", 0, "largest size of the default sweep (0: no limit)")
	f.IntSlice("sizes", nil, "explicit sizes, replacing the default sweep")
	f.Bool("verify", false, "check the output of the first trial of every size")
	f.Int("max-elements", 0, "reject sizes above this many elements (0: no limit)")
	f.StringP("output", "o", "", "write results as CSV to this file")
	f.String("device", "emulated", "accelerator backend")
	f.Int("compute-units", 0, "compute units of the emulated device (0: GOMAXPROCS)")
	f.Duration("acquire-timeout", 0, "how long a trial waits for the device (0: default)")
	return cmd
}

func parseStrategies(args []string) ([]strategy.ID, error) {
	if len(args) == 0 {
		return strategy.IDs(), nil
	}
	ids := make([]strategy.ID, 0, len(args))
	for _, arg := range args {
		id, err := strategy.ParseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// progressLogger logs every tenth of a sweep.
func progressLogger(log *zap.Logger) bench.ProgressFunc {
	last := -1
	return func(p bench.Progress) {
		if p.Completed == 1 {
			last = -1
		}
		if step := int(math.Floor(p.Percent / 10)); step > last {
			last = step
			log.Info("progress", zap.Stringer("strategy", p.Strategy),
				zap.Float64("progress", math.Round(p.Percent*10)/10))
		}
	}
}

func (a *app) run(ctx context.Context, cmd *cobra.Command, ids []strategy.ID) (err error) {
	host := bench.Host()
	a.log.Info("host", zap.String("host", host.String()))

	var history *store.Store
	if a.cfg.Store.Path != "" {
		if history, err = store.Open(ctx, a.cfg.Store.Path); err != nil {
			return err
		}
	}

	device := strategy.NewDeviceHandle(a.cfg.Device.Backend, a.cfg.AccelOptions(a.log), a.log)
	opts := append(a.cfg.SessionOptions(),
		bench.WithStrategies(strategy.NewSet(device)),
		bench.WithLogger(a.log),
		bench.WithProgress(progressLogger(a.log)),
	)
	if history != nil {
		opts = append(opts, bench.WithCloser(history))
	}
	session, err := bench.NewSession(opts...)
	if err != nil {
		if history != nil {
			err = multierr.Append(err, history.Close())
		}
		return multierr.Append(err, device.Close())
	}
	defer func() {
		err = multierr.Append(err, session.Close())
	}()

	var failed error
	for _, id := range ids {
		started := time.Now()
		if err := <-session.Start(ctx, id); err != nil {
			if ctx.Err() != nil {
				return err
			}
			if bench.Retryable(err) {
				a.log.Warn("device busy, run the strategy again later", zap.Stringer("strategy", id))
			}
			failed = multierr.Append(failed, err)
			continue
		}
		if history != nil {
			if err := a.record(ctx, history, session.Results(), id, started, host); err != nil {
				a.log.Error("recording run", zap.Error(err))
			}
		}
	}

	results := session.Results()
	switch out := a.cfg.Output; {
	case out != "":
		err = export.WriteFile(out, results)
	default:
		err = export.WriteTable(cmd.OutOrStdout(), results)
	}
	if errors.Is(err, bench.ErrNoResults) {
		a.log.Warn("no results to export")
		err = nil
	}
	return multierr.Append(failed, err)
}

func (a *app) record(ctx context.Context, history *store.Store, results bench.Results, id strategy.ID, started time.Time, host bench.HostInfo) error {
	runID, err := history.SaveRun(ctx, store.Run{
		Strategy:   id.String(),
		Iterations: a.cfg.Iterations,
		Seed:       a.cfg.Seed,
		Bound:      a.cfg.Bound,
		Started:    started,
		Finished:   time.Now(),
		Host:       host.String(),
	}, results.Samples[id])
	if err != nil {
		return err
	}
	a.log.Debug("run recorded", zap.Stringer("strategy", id), zap.Int64("run", runID))
	return nil
}

func newSweepCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Print the input sizes of the sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, n := range a.cfg.Sweep() {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	cmd.Flags().Int("sweep-limit", 0, "largest size of the default sweep (0: no limit)")
	cmd.Flags().IntSlice("sizes", nil, "explicit sizes, replacing the default sweep")
	return cmd
}
