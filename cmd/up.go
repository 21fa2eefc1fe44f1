package cmd

import (
	"github.com/skevetter/contain/cmd/flags"
	"github.com/spf13/cobra"
)

// UpCmd holds the up cmd flags
type UpCmd struct {
	*flags.GlobalFlags
}

// NewUpCmd creates a new up command
func NewUpCmd(flags *flags.GlobalFlags) *cobra.Command {
	cmd := &UpCmd{
		GlobalFlags: flags,
	}
	return &cobra.Command{
		Use:   "up [command]",
		Short: "Starts the named container of a configuration in the background",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			orchestrator, err := newOrchestrator(cmd.GlobalFlags, false, cobraCmd.OutOrStdout())
			if err != nil {
				return err
			}

			return orchestrator.Up(cobraCmd.Context(), firstArg(args))
		},
	}
}
