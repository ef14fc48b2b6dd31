package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steppy/steppy-service/internal/catalog"
)

func newDoneCmd(dbPath *string) *cobra.Command {
	var duration int

	cmd := &cobra.Command{
		Use:   "done <task-id>",
		Short: "Record a finished task",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("task id is required")
			}
			if _, ok := catalog.Default().TaskByID(args[0]); !ok {
				return fmt.Errorf("unknown task %q", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration <= 0 {
				return errors.New("--duration must be positive")
			}
			task, _ := catalog.Default().TaskByID(args[0])

			ctx := context.Background()
			tracker, cleanup, err := openTracker(ctx, *dbPath)
			if err != nil {
				return err
			}
			defer cleanup()

			tracker.RecordCompletion(ctx, task.ID, task.Category, duration)
			stats := tracker.Stats()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recorded %q.\n", task.Title)
			fmt.Fprintf(out, "Today: %d  Streak: %d day(s)\n", stats.Today, stats.Streak)
			return nil
		},
	}
	cmd.Flags().IntVar(&duration, "duration", 60, "seconds spent on the task")
	return cmd
}
