package cmd

import (
	"github.com/skevetter/contain/cmd/flags"
	"github.com/spf13/cobra"
)

// RunCmd holds the run cmd flags
type RunCmd struct {
	*flags.GlobalFlags

	Interactive bool
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *flags.GlobalFlags) *cobra.Command {
	cmd := &RunCmd{
		GlobalFlags: flags,
	}
	runCmd := &cobra.Command{
		Use:   "run [flags] command [args...]",
		Short: "Runs a command in the container configured for it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.Run(cobraCmd, args[0], args[1:])
		},
	}

	// everything after the command belongs to it
	runCmd.Flags().SetInterspersed(false)
	runCmd.Flags().BoolVarP(&cmd.Interactive, "interactive", "i", false, "Keep stdin open and allocate a terminal if available")
	return runCmd
}

// Run runs the command logic
func (cmd *RunCmd) Run(cobraCmd *cobra.Command, command string, args []string) error {
	orchestrator, err := newOrchestrator(cmd.GlobalFlags, cmd.Interactive, cobraCmd.OutOrStdout())
	if err != nil {
		return err
	}

	return exitWith(orchestrator.Run(cobraCmd.Context(), command, args))
}
