package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "1.0.0"

func newRootCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "steppy",
		Short:         "Steppy: one-minute daily growth tasks",
		Long:          "Steppy suggests short growth tasks, records what you finish and keeps your streak.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "progress database path (default ~/.steppy.db)")

	cmd.AddCommand(
		newTasksCmd(),
		newNextCmd(&dbPath),
		newDoneCmd(&dbPath),
		newStatsCmd(&dbPath),
		newResetCmd(&dbPath),
	)
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}
