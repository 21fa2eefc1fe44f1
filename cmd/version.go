package cmd

import (
	"fmt"

	"github.com/skevetter/contain/pkg/version"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates a new version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the version",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cobraCmd.OutOrStdout(), version.GetVersion())
			return err
		},
	}
}
