package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/execdesk/execdesk/internal/domain/metric"
)

var (
	flagUnit   string
	flagSource string
)

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Record readings and inspect metric trends",
}

var kpiRecordCmd = &cobra.Command{
	Use:   "record <metric> <value>",
	Short: "Record one metric reading",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[1], err)
		}
		logger := newLogger()
		a, err := buildApp(cmd.Context(), logger)
		if err != nil {
			return err
		}
		defer a.Close()
		rt, err := orgRuntime(a)
		if err != nil {
			return err
		}
		alerts, err := rt.KPI.Record(cmd.Context(), metric.Reading{
			Name:   args[0],
			Value:  value,
			Unit:   flagUnit,
			Source: flagSource,
		})
		if err != nil {
			return err
		}
		for _, al := range alerts {
			fmt.Printf("ALERT: %s\n", al.Reason)
		}
		if len(alerts) == 0 {
			fmt.Printf("recorded %s = %g\n", args[0], value)
		}
		return nil
	},
}

var kpiTrendsCmd = &cobra.Command{
	Use:   "trends [metric]",
	Short: "Show trend analysis (all actionable metrics, or one by name)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		a, err := buildApp(cmd.Context(), logger)
		if err != nil {
			return err
		}
		defer a.Close()
		rt, err := orgRuntime(a)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if len(args) == 1 {
			snap, err := rt.KPI.AnalyzeTrend(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if snap == nil {
				fmt.Printf("%s: insufficient history for a trend\n", args[0])
				return nil
			}
			return enc.Encode(snap)
		}
		recs, err := rt.KPI.ProactiveRecommendations(cmd.Context())
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("no metrics need action")
			return nil
		}
		return enc.Encode(recs)
	},
}

func init() {
	kpiRecordCmd.Flags().StringVar(&flagUnit, "unit", "", "reading unit")
	kpiRecordCmd.Flags().StringVar(&flagSource, "source", "cli", "reading source label")
	kpiCmd.AddCommand(kpiRecordCmd)
	kpiCmd.AddCommand(kpiTrendsCmd)
	rootCmd.AddCommand(kpiCmd)
}
