package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var staffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Show the worker roster and remaining capacity",
	RunE: func(cmd *cobra.Command, _ []string) error {
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
		roster, err := rt.Pool.Summarize(cmd.Context())
		if err != nil {
			return err
		}
		if len(roster) == 0 {
			fmt.Println("no workers provisioned yet")
			return nil
		}
		for _, line := range roster {
			w := line.Worker
			state := "active"
			if !w.Active {
				state = "inactive"
			}
			fmt.Printf("%-36s %-20s %-12s %s  %d/%d used, %d free\n",
				w.ID, w.Role, w.Department, state,
				w.TasksAssignedToday, w.MaxDailyTasks, line.Remaining)
		}
		_, byDept, err := rt.Pool.Breakdown(cmd.Context())
		if err != nil {
			return err
		}
		for dept, n := range byDept {
			fmt.Printf("%s: %d active\n", dept, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(staffCmd)
}
