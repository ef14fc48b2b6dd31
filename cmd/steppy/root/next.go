package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steppy/steppy-service/internal/catalog"
	"github.com/steppy/steppy-service/internal/selector"
)

func newNextCmd(dbPath *string) *cobra.Command {
	var anyTask bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Suggest the next task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			tracker, cleanup, err := openTracker(ctx, *dbPath)
			if err != nil {
				return err
			}
			defer cleanup()

			tasks := catalog.Default()
			task, ok := selector.New(nil).Next(tasks.Tasks(), tracker.CompletedTaskIDs())
			if anyTask {
				task, ok = tasks.Random(nil), true
			}
			if !ok {
				return errors.New("the task catalog is empty")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  [%s, %ds]\n", task.Title, task.Category, task.EstimatedSeconds)
			fmt.Fprintln(out, task.Description)
			if task.Content != "" {
				fmt.Fprintln(out, "  "+task.Content)
			}
			fmt.Fprintf(out, "\nWhen you're done: steppy done %s\n", task.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&anyTask, "any", false, "pick any task at random, ignoring category balance")
	return cmd
}
