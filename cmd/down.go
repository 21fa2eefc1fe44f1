package cmd

import (
	"github.com/skevetter/contain/cmd/flags"
	"github.com/spf13/cobra"
)

// NewDownCmd creates a new down command
func NewDownCmd(flags *flags.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "down [command]",
		Aliases: []string{"stop"},
		Short:   "Stops and removes the named container of a configuration",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			orchestrator, err := newOrchestrator(flags, false, cobraCmd.OutOrStdout())
			if err != nil {
				return err
			}

			return orchestrator.Down(cobraCmd.Context(), firstArg(args))
		},
	}
}
