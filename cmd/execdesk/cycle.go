package main

import (
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/execdesk/execdesk/internal/application/orchestrator"
)

var (
	flagContinuous bool
	flagInterval   time.Duration
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one planning cycle (or keep cycling with --continuous)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if flagContinuous {
			interval := flagInterval
			if interval <= 0 {
				interval = a.Config.CycleInterval
			}
			sched := orchestrator.NewScheduler(a.Orchestrators(), interval, a.Config.StateDir, logger)
			if err := sched.Run(ctx); err != nil && !errors.Is(err, ctx.Err()) {
				return err
			}
			return nil
		}

		rt, err := orgRuntime(a)
		if err != nil {
			return err
		}
		sum, err := rt.Orchestrator.Cycle(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	},
}

func init() {
	cycleCmd.Flags().BoolVar(&flagContinuous, "continuous", false, "keep cycling on an interval for every configured org")
	cycleCmd.Flags().DurationVar(&flagInterval, "interval", 0, "cycle interval (defaults to config cycle_interval)")
	rootCmd.AddCommand(cycleCmd)
}
