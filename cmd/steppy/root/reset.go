package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(dbPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget every recorded completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes all progress; pass --yes to confirm")
			}
			ctx := context.Background()
			tracker, cleanup, err := openTracker(ctx, *dbPath)
			if err != nil {
				return err
			}
			defer cleanup()

			tracker.Reset(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Progress cleared.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
