package cmd

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/loft-sh/log"
	"github.com/skevetter/contain/cmd/flags"
	"github.com/skevetter/contain/pkg/config"
	"github.com/skevetter/contain/pkg/environ"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates a new config command
func NewConfigCmd(globalFlags *flags.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config [command]",
		Short: "Prints the resolved configuration for a command",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}

			resolver := config.NewResolver(environ.FromOS(), log.Default)
			configuration, err := resolver.Resolve(cobraCmd.Context(), cwd, firstArg(args))
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(configuration)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cobraCmd.OutOrStdout(), string(out))
			return err
		},
	}
}
