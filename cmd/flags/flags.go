package flags

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/loft-sh/log"
	"github.com/pkg/errors"
	"github.com/skevetter/contain/pkg/docker"
	"github.com/skevetter/contain/pkg/errdefs"
	"github.com/skevetter/contain/pkg/lifecycle"
	flag "github.com/spf13/pflag"
)

type GlobalFlags struct {
	KeepContainer bool
	DryRun        bool
	RunAsRoot     bool
	SkipPorts     bool
	SkipName      bool

	Env     []string
	EnvFile []string
	Engine  string

	Debug  bool
	Silent bool
}

const ContainEnvPrefix = "CONTAIN_"

// Defines a string flag with specified name, environment variable, default value, and usage string.
// The argument variable points to a string variable in which to store the value of the flag.
func StringVarE(f *flag.FlagSet, variable *string, name string, environmentVariable string, defaultValue string, usage string) {
	f.StringVar(variable, name, GetStringEnv(environmentVariable, defaultValue), usage+". You can also use "+environmentVariable+" to set this")
}

func GetStringEnv(environmentVariable string, defaultValue string) string {
	if value, exists := os.LookupEnv(environmentVariable); exists {
		return value
	}
	return defaultValue
}

// Defines a bool flag with specified name, environment variable, default value, and usage string.
// The argument variable points to a bool variable in which to store the value of the flag.
func BoolVarE(f *flag.FlagSet, variable *bool, name string, environmentVariable string, defaultValue bool, usage string) {
	f.BoolVar(variable, name, GetBoolEnv(environmentVariable, defaultValue), usage+". You can also use "+environmentVariable+" to set this")
}

func GetBoolEnv(environmentVariable string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(environmentVariable); exists {
		result, err := strconv.ParseBool(value)
		if err != nil {
			log.Default.Warnf("invalid boolean value %s for environment variable %s, falling back to default %v", value, environmentVariable, defaultValue)
			return defaultValue
		}
		return result
	}
	return defaultValue
}

// SetGlobalFlags applies the global flags
func SetGlobalFlags(flags *flag.FlagSet) *GlobalFlags {
	globalFlags := &GlobalFlags{}

	flags.BoolVarP(&globalFlags.KeepContainer, "keep", "k", false, "Keep the container after the command exits")
	flags.BoolVarP(&globalFlags.DryRun, "dry-run", "n", false, "Print the engine commands instead of running them")
	flags.BoolVar(&globalFlags.RunAsRoot, "root", false, "Run as root inside the container instead of the current user")
	flags.BoolVar(&globalFlags.SkipPorts, "skip-ports", false, "Do not publish the configured ports")
	flags.BoolVar(&globalFlags.SkipName, "skip-name", false, "Ignore the configured container name")
	flags.StringArrayVarP(&globalFlags.Env, "env", "e", nil, "Set an environment variable in the container (KEY=VALUE)")
	flags.StringArrayVar(&globalFlags.EnvFile, "env-file", nil, "Read environment variables for the container from a file")
	StringVarE(flags, &globalFlags.Engine, "engine", ContainEnvPrefix+"ENGINE", docker.DefaultCommand, "The container engine command to use")
	BoolVarE(flags, &globalFlags.Debug, "debug", ContainEnvPrefix+"VERBOSE", false, "Prints debug output and the stack trace if an error occurs")
	flags.BoolVar(&globalFlags.Silent, "silent", false, "Run in silent mode and prevents any contain log output except panics & fatals")
	return globalFlags
}

// Options converts the global flags into lifecycle options. Variables from
// env files follow the ones given with --env.
func (g *GlobalFlags) Options(interactive bool) (lifecycle.GlobalOptions, error) {
	envVariables := []string{}
	for _, env := range g.Env {
		if strings.HasPrefix(env, "=") || env == "" {
			return lifecycle.GlobalOptions{}, &errdefs.UnsupportedParameterError{Parameter: "--env", Value: env, Reason: "expected KEY=VALUE"}
		}
		envVariables = append(envVariables, env)
	}

	for _, file := range g.EnvFile {
		values, err := godotenv.Read(file)
		if err != nil {
			return lifecycle.GlobalOptions{}, errors.Wrapf(err, "read env file %s", file)
		}

		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			envVariables = append(envVariables, key+"="+values[key])
		}
	}

	return lifecycle.GlobalOptions{
		Interactive:     interactive,
		KeepContainer:   g.KeepContainer,
		RunAsRoot:       g.RunAsRoot,
		DryRun:          g.DryRun,
		SkipPorts:       g.SkipPorts,
		SkipName:        g.SkipName,
		CliEnvVariables: envVariables,
	}, nil
}
