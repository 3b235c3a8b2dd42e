package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/exascience/countbench/accel"
	"github.com/exascience/countbench/bench"
	"github.com/exascience/countbench/internal/store"
	"github.com/exascience/countbench/strategy"
)

func newInfoCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe the host and check that the accelerator initializes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "host:    ", bench.Host())
			fmt.Fprintln(out, "backends:", accel.Backends())

			device := strategy.NewDeviceHandle(a.cfg.Device.Backend, a.cfg.AccelOptions(a.log), a.log)
			defer func() {
				err = multierr.Append(err, device.Close())
			}()
			if _, err := device.Acquire(cmd.Context()); err != nil {
				fmt.Fprintf(out, "device:   %s unavailable: %v\n", a.cfg.Device.Backend, err)
				return nil
			}
			fmt.Fprintf(out, "device:   %s ready\n", a.cfg.Device.Backend)
			return nil
		},
	}
	cmd.Flags().String("device", "emulated", "accelerator backend")
	cmd.Flags().Int("compute-units", 0, "compute units of the emulated device (0: GOMAXPROCS)")
	return cmd
}

func newHistoryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history [run]",
		Short: "List recorded runs, or the samples of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if a.cfg.Store.Path == "" {
				return fmt.Errorf("no store configured, set --store or store.path")
			}
			history, err := store.Open(cmd.Context(), a.cfg.Store.Path)
			if err != nil {
				return err
			}
			defer func() {
				err = multierr.Append(err, history.Close())
			}()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if len(args) == 0 {
				runs, err := history.ListRuns(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "run\tstrategy\titerations\tfinished\thost")
				for _, r := range runs {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", r.ID, r.Strategy, r.Iterations,
						r.Finished.Format("2006-01-02 15:04:05"), r.Host)
				}
				return tw.Flush()
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run %q: %w", args[0], err)
			}
			samples, err := history.Samples(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "n\tmean_us\tstddev_us\tmin_us\tmax_us")
			for _, s := range samples {
				fmt.Fprintf(tw, "%d\t%d\t%.1f\t%.0f\t%.0f\n", s.Size, s.Mean, s.StdDev, s.Min, s.Max)
			}
			return tw.Flush()
		},
	}
}
