package cmd

import (
	"io"
	"os"

	"github.com/loft-sh/log"
	"github.com/skevetter/contain/cmd/flags"
	"github.com/skevetter/contain/pkg/config"
	"github.com/skevetter/contain/pkg/docker"
	"github.com/skevetter/contain/pkg/environ"
	"github.com/skevetter/contain/pkg/lifecycle"
	"github.com/skevetter/contain/pkg/passthrough"
)

// newOrchestrator wires the orchestrator for the current directory and
// process environment.
func newOrchestrator(globalFlags *flags.GlobalFlags, interactive bool, stdout io.Writer) (*lifecycle.Orchestrator, error) {
	options, err := globalFlags.Options(interactive)
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	env := environ.FromOS()
	engine := globalFlags.Engine
	if engine == "" {
		engine = docker.DefaultCommand
	}

	return &lifecycle.Orchestrator{
		Resolver: config.NewResolver(env, log.Default),
		Guard:    passthrough.NewGuard(env, log.Default),
		NewDriver: func(environment []string) lifecycle.Driver {
			return &docker.DockerHelper{
				DockerCommand: engine,
				Environment:   environment,
				Log:           log.Default,
			}
		},
		Options:       options,
		Cwd:           cwd,
		Env:           env,
		EngineCommand: engine,
		Stdout:        stdout,
		Log:           log.Default,
	}, nil
}
