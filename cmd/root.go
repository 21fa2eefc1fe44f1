package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/loft-sh/log"
	"github.com/sirupsen/logrus"
	"github.com/skevetter/contain/cmd/flags"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

var globalFlags *flags.GlobalFlags

// ExitCodeError ends contain with Code. Err, if set, is reported first.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// exitWith converts the outcome of a container command into a command error.
func exitWith(code int, err error) error {
	if err == nil && code == 0 {
		return nil
	} else if err != nil && code == 0 {
		code = 1
	}
	return &ExitCodeError{Code: code, Err: err}
}

// NewRootCmd returns a new root command
func NewRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "contain",
		Short:         "Run development tools in containers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cobraCmd *cobra.Command, args []string) error {
			if globalFlags.Silent {
				log.Default.SetLevel(logrus.FatalLevel)
			} else if globalFlags.Debug {
				log.Default.SetLevel(logrus.DebugLevel)
			}

			return nil
		},
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// build the root command
	rootCmd := BuildRoot()

	// execute command
	err := rootCmd.Execute()
	if err != nil {
		var exitErr *ExitCodeError
		if errors.As(err, &exitErr) {
			if exitErr.Err != nil {
				reportError(exitErr.Err)
			}
			os.Exit(exitErr.Code)
		}

		reportError(err)
		os.Exit(1)
	}
}

func reportError(err error) {
	if globalFlags != nil && globalFlags.Debug {
		log.Default.Errorf("%+v", err)
	} else {
		log.Default.Error(err)
	}
}

// BuildRoot creates a new root command with all subcommands
func BuildRoot() *cobra.Command {
	rootCmd := NewRootCmd()
	persistentFlags := rootCmd.PersistentFlags()
	globalFlags = flags.SetGlobalFlags(persistentFlags)

	rootCmd.AddCommand(NewRunCmd(globalFlags))
	rootCmd.AddCommand(NewShellCmd(globalFlags))
	rootCmd.AddCommand(NewUpCmd(globalFlags))
	rootCmd.AddCommand(NewDownCmd(globalFlags))
	rootCmd.AddCommand(NewStatusCmd(globalFlags))
	rootCmd.AddCommand(NewConfigCmd(globalFlags))
	rootCmd.AddCommand(NewVersionCmd())

	inheritCommandFlagsFromEnvironment(rootCmd)

	return rootCmd
}

func inheritCommandFlagsFromEnvironment(cmd *cobra.Command) {
	inheritFlagsFromEnvironment(cmd.Flags())
	inheritFlagsFromEnvironment(cmd.PersistentFlags())

	for _, sub := range cmd.Commands() {
		inheritCommandFlagsFromEnvironment(sub)
	}
}

// Inherits default values for all flags that have a corresponding environment variable set.
func inheritFlagsFromEnvironment(flags *flag.FlagSet) {
	flags.VisitAll(func(flag *flag.Flag) {
		// calculate environment variable name from flag name
		environmentVariable := environmentVariableFor(flag.Name)

		if value, exists := os.LookupEnv(environmentVariable); exists {
			// set the variable holding the flag's value to the default supplied by the environment
			err := flag.Value.Set(value)
			if err != nil {
				log.Default.Fatalf("failed to set flag %s from the environment variable %s with value %s: %+v", flag.Name, environmentVariable, value, err)
			}
			// reflect this default in the usage output
			flag.DefValue = value
		}

		// add note about environment variable to usage, but only if it is not there yet -
		// in case we visit the same flag more than once.
		usageAddition := ". You can also use " + environmentVariable + " to set this"
		if !strings.Contains(flag.Usage, "You can also use") {
			flag.Usage = flag.Usage + usageAddition
		}
	})
}

func environmentVariableFor(flagName string) string {
	return flags.ContainEnvPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
