package cmd

import (
	"github.com/skevetter/contain/cmd/flags"
	"github.com/spf13/cobra"
)

// NewShellCmd creates a new shell command
func NewShellCmd(globalFlags *flags.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shell [command]",
		Short: "Starts an interactive shell in the container configured for a command",
		Long: `Starts the default shell of the matching image entry. Without a command
the first image entry of the nearest configuration is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			orchestrator, err := newOrchestrator(globalFlags, true, cobraCmd.OutOrStdout())
			if err != nil {
				return err
			}

			return exitWith(orchestrator.Shell(cobraCmd.Context(), firstArg(args)))
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
