package root

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatsCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			tracker, cleanup, err := openTracker(ctx, *dbPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats := tracker.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Today:     %d\n", stats.Today)
			fmt.Fprintf(out, "This week: %d\n", stats.ThisWeek)
			fmt.Fprintf(out, "Total:     %d\n", stats.Total)
			fmt.Fprintf(out, "Streak:    %d day(s)\n", stats.Streak)

			perCategory := tracker.CategoryProgress()
			if len(perCategory) == 0 {
				return nil
			}
			categories := make([]string, 0, len(perCategory))
			for c := range perCategory {
				categories = append(categories, c)
			}
			sort.Strings(categories)
			fmt.Fprintln(out, "\nBy category:")
			for _, c := range categories {
				fmt.Fprintf(out, "  %-13s %d\n", c, perCategory[c])
			}

			fmt.Fprintln(out, "\nLast 7 days:")
			for _, day := range tracker.Snapshot().WeeklyActivity {
				fmt.Fprintf(out, "  %s %d\n", day.Date, day.Count)
			}
			return nil
		},
	}
}
