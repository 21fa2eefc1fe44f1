package cmd

import (
	"github.com/skevetter/contain/cmd/flags"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates a new status command
func NewStatusCmd(flags *flags.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status [command]",
		Short: "Shows the state of the named container of a configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			orchestrator, err := newOrchestrator(flags, false, cobraCmd.OutOrStdout())
			if err != nil {
				return err
			}

			return orchestrator.Status(cobraCmd.Context(), firstArg(args))
		},
	}
}
