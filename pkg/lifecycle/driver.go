package lifecycle

import (
	"context"

	"github.com/skevetter/contain/pkg/config"
	"github.com/skevetter/contain/pkg/docker"
)

// Driver is the subset of a container engine the orchestrator drives.
// *docker.DockerHelper implements it.
type Driver interface {
	ImageExists(ctx context.Context, image string) (bool, error)
	PullImage(ctx context.Context, image string) error
	BuildImage(ctx context.Context, options docker.BuildOptions) error

	ContainerExists(ctx context.Context, name string) (bool, error)
	ContainerIsStopped(ctx context.Context, name string) (bool, error)
	GetContainerInfo(ctx context.Context, name string) (*docker.ContainerInfo, error)

	StartContainer(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error

	RunContainer(ctx context.Context, args []string) (int, error)
	ExecInto(ctx context.Context, args []string) (int, error)
}

// DriverFactory returns a Driver whose engine processes run with environment.
type DriverFactory func(environment []string) Driver

// Resolver resolves the configuration for a command started in startDir.
type Resolver interface {
	Resolve(ctx context.Context, startDir, command string) (*config.Configuration, error)
}

// Guard decides whether contain already runs inside a container and, if so,
// runs commands directly on the current system.
type Guard interface {
	Active() bool
	Exec(ctx context.Context, command string, args []string, env []string) (int, error)
}

// GlobalOptions are derived once from the command line.
type GlobalOptions struct {
	Interactive   bool
	KeepContainer bool
	RunAsRoot     bool
	DryRun        bool
	SkipPorts     bool
	SkipName      bool

	// CliEnvVariables are KEY=VALUE pairs applied after the configured ones.
	CliEnvVariables []string
}
