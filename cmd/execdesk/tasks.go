package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/execdesk/execdesk/internal/application/tasks"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Show the open task tree",
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
		tree, err := rt.Tasks.OpenTaskTree(cmd.Context())
		if err != nil {
			return err
		}
		if len(tree) == 0 {
			fmt.Println("no open tasks")
			return nil
		}
		fmt.Print(tasks.FormatTree(tree))
		return nil
	},
}

var (
	flagApprove  bool
	flagReviewer string
	flagComments string
)

var reviewCmd = &cobra.Command{
	Use:   "review <task-id>",
	Short: "Approve or reject a completed task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid task id: %w", err)
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
		if err := rt.Orchestrator.Review(cmd.Context(), id, flagApprove, flagReviewer, flagComments); err != nil {
			return err
		}
		verdict := "rejected"
		if flagApprove {
			verdict = "approved"
		}
		fmt.Printf("%s %s\n", id, verdict)
		return nil
	},
}

func init() {
	reviewCmd.Flags().BoolVar(&flagApprove, "approve", false, "approve the task (default is reject)")
	reviewCmd.Flags().StringVar(&flagReviewer, "reviewer", "operator", "reviewer identity")
	reviewCmd.Flags().StringVar(&flagComments, "comments", "", "review comments")
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(reviewCmd)
}
