package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steppy/steppy-service/internal/catalog"
)

func newTasksCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the task catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := catalog.Default()
			tasks := c.Tasks()
			if category != "" {
				if _, ok := c.CategoryByID(category); !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				tasks = c.TasksByCategory(category)
			}

			out := cmd.OutOrStdout()
			for _, t := range tasks {
				fmt.Fprintf(out, "%-16s %-13s %-7s %3ds  %s\n", t.ID, t.Category, t.Difficulty, t.EstimatedSeconds, t.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list tasks of this category")
	return cmd
}
