// Package lifecycle decides how a resolved configuration is executed: as a
// fresh container, inside an already running one, or as a long lived
// background container managed with up, down and status.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/loft-sh/log"
	"github.com/mattn/go-isatty"
	"github.com/skevetter/contain/pkg/config"
	"github.com/skevetter/contain/pkg/docker"
	"github.com/skevetter/contain/pkg/environ"
	"github.com/skevetter/contain/pkg/errdefs"
	"github.com/skevetter/contain/pkg/shell"
)

// DefaultShell is started by Shell when the configuration names none.
const DefaultShell = "sh"

// keepAlive keeps a detached container running until it is stopped.
var keepAlive = []string{"tail", "-f", "/dev/null"}

type Orchestrator struct {
	Resolver  Resolver
	Guard     Guard
	NewDriver DriverFactory
	Options   GlobalOptions

	// Cwd is the directory contain was started in.
	Cwd string
	// Env is the environment contain was started with.
	Env *environ.Environment
	// EngineCommand is only used to print commands in dry-run mode.
	EngineCommand string

	// Stdout receives dry-run commands and status reports.
	Stdout io.Writer
	// IsTerminal reports whether stdin is a terminal. Defaults to checking
	// os.Stdin.
	IsTerminal func() bool
	// Identity is the user containers run as. Defaults to the current user.
	Identity *docker.Identity

	Log log.Logger
}

// Run runs command with args in a container and returns its exit code.
func (o *Orchestrator) Run(ctx context.Context, command string, args []string) (int, error) {
	if o.Guard.Active() {
		o.Log.Debugf("already inside a container, running %s directly", command)
		return o.Guard.Exec(ctx, command, args, o.Options.CliEnvVariables)
	}

	return o.execute(ctx, command, command, args, o.Options)
}

// Shell starts an interactive shell in the container configured for command.
// An empty command selects the first image entry.
func (o *Orchestrator) Shell(ctx context.Context, command string) (int, error) {
	if o.Guard.Active() {
		userShell := o.env().Get("SHELL")
		if userShell == "" {
			userShell = DefaultShell
			if found, err := shell.GetShell(""); err == nil {
				userShell = found[0]
			}
		}
		o.Log.Debugf("already inside a container, starting %s directly", userShell)
		return o.Guard.Exec(ctx, userShell, nil, o.Options.CliEnvVariables)
	}

	options := o.Options
	options.Interactive = true
	return o.execute(ctx, command, "", nil, options)
}

// execute resolves the configuration for lookup and runs target in it. An
// empty target runs the configured default shell.
func (o *Orchestrator) execute(ctx context.Context, lookup, target string, args []string, options GlobalOptions) (int, error) {
	cfg, driver, err := o.resolve(ctx, lookup)
	if err != nil {
		return 1, err
	}

	workdir, err := containerWorkdir(cfg, o.Cwd)
	if err != nil {
		return 1, err
	}

	if target == "" {
		target = cfg.DefaultShell
		if target == "" {
			target = DefaultShell
		}
	}

	if !options.DryRun {
		if err := o.ensureImage(ctx, driver, cfg); err != nil {
			return 1, err
		}
	}

	params := &runParams{
		mode:     modeRun,
		config:   cfg,
		options:  options,
		identity: o.identity(),
		workdir:  workdir,
		tty:      o.isTerminal(),
		command:  target,
		args:     args,
	}

	if cfg.Name != "" && !options.SkipName {
		running, err := driver.ContainerExists(ctx, cfg.Name)
		if err != nil {
			return 1, err
		}
		if running {
			params.mode = modeExec
			runArgs := buildRunArgs(params)
			if options.DryRun {
				return 0, o.printCommand(runArgs)
			}

			o.Log.Debugf("container %s is running, executing %s in it", cfg.Name, target)
			return driver.ExecInto(ctx, runArgs)
		}
	}

	runArgs := buildRunArgs(params)
	if options.DryRun {
		return 0, o.printCommand(runArgs)
	}

	return driver.RunContainer(ctx, runArgs)
}

// Up starts the named container of the configuration in the background.
func (o *Orchestrator) Up(ctx context.Context, command string) error {
	cfg, driver, err := o.resolveNamed(ctx, command)
	if err != nil {
		return err
	}

	running, err := driver.ContainerExists(ctx, cfg.Name)
	if err != nil {
		return err
	} else if running {
		return &errdefs.LifecycleError{Kind: errdefs.AlreadyRunning, Name: cfg.Name}
	}

	known, err := driver.ContainerIsStopped(ctx, cfg.Name)
	if err != nil {
		return err
	} else if known {
		if o.Options.DryRun {
			return o.printCommand([]string{"start", cfg.Name})
		}

		o.Log.Infof("starting container %s", cfg.Name)
		err = driver.StartContainer(ctx, cfg.Name)
		if err != nil {
			return &errdefs.LifecycleError{Kind: errdefs.StartFailed, Name: cfg.Name, Err: err}
		}
		return nil
	}

	workdir, err := containerWorkdir(cfg, o.Cwd)
	if err != nil {
		return err
	}

	runArgs := buildRunArgs(&runParams{
		mode:     modeDetached,
		config:   cfg,
		options:  o.Options,
		identity: o.identity(),
		workdir:  workdir,
		command:  keepAlive[0],
		args:     keepAlive[1:],
	})
	if o.Options.DryRun {
		return o.printCommand(runArgs)
	}

	err = o.ensureImage(ctx, driver, cfg)
	if err != nil {
		return err
	}

	o.Log.Infof("creating container %s from %s", cfg.Name, cfg.Image)
	code, err := driver.RunContainer(ctx, runArgs)
	if err != nil {
		return &errdefs.LifecycleError{Kind: errdefs.StartFailed, Name: cfg.Name, Err: err}
	} else if code != 0 {
		return &errdefs.LifecycleError{Kind: errdefs.StartFailed, Name: cfg.Name, Err: fmt.Errorf("engine exited with code %d", code)}
	}

	o.Log.Donef("container %s is up", cfg.Name)
	return nil
}

// Down stops and removes the named container of the configuration.
func (o *Orchestrator) Down(ctx context.Context, command string) error {
	cfg, driver, err := o.resolveNamed(ctx, command)
	if err != nil {
		return err
	}

	running, err := driver.ContainerExists(ctx, cfg.Name)
	if err != nil {
		return err
	}
	known, err := driver.ContainerIsStopped(ctx, cfg.Name)
	if err != nil {
		return err
	}

	if !running && !known {
		o.Log.Infof("container %s does not exist, nothing to do", cfg.Name)
		return nil
	}

	if running {
		if o.Options.DryRun {
			err = o.printCommand([]string{"stop", cfg.Name})
		} else {
			o.Log.Infof("stopping container %s", cfg.Name)
			err = driver.Stop(ctx, cfg.Name)
		}
		if err != nil {
			return &errdefs.LifecycleError{Kind: errdefs.StopFailed, Name: cfg.Name, Err: err}
		}
	}

	if o.Options.DryRun {
		return o.printCommand([]string{"rm", cfg.Name})
	}

	o.Log.Infof("removing container %s", cfg.Name)
	err = driver.Remove(ctx, cfg.Name)
	if err != nil {
		return &errdefs.LifecycleError{Kind: errdefs.RemoveFailed, Name: cfg.Name, Err: err}
	}

	o.Log.Donef("container %s is down", cfg.Name)
	return nil
}

// Status reports the state of the named container of the configuration.
func (o *Orchestrator) Status(ctx context.Context, command string) error {
	if o.Guard.Active() {
		o.Log.Info("running inside a container, container status is not available")
		return nil
	}

	cfg, driver, err := o.resolve(ctx, command)
	if err != nil {
		return err
	} else if cfg.Name == "" {
		return &errdefs.LifecycleError{Kind: errdefs.NameRequired}
	}

	info, err := driver.GetContainerInfo(ctx, cfg.Name)
	if err != nil {
		return err
	}

	switch {
	case info == nil:
		_, err = fmt.Fprintf(o.stdout(), "%s: not created\n", cfg.Name)
	case !info.Running:
		_, err = fmt.Fprintf(o.stdout(), "%s: stopped (%s)\n", cfg.Name, info.Status)
	default:
		ports := "none"
		if len(info.Ports) > 0 {
			ports = strings.Join(info.Ports, ", ")
		}
		_, err = fmt.Fprintf(o.stdout(), "%s: running\n  image:   %s\n  created: %s\n  ports:   %s\n",
			cfg.Name, info.Image, info.Created, ports)
	}

	return err
}

// resolveNamed resolves a configuration that manages a named background
// container. It is refused inside a container.
func (o *Orchestrator) resolveNamed(ctx context.Context, command string) (*config.Configuration, Driver, error) {
	cfg, driver, err := o.resolve(ctx, command)
	if err != nil {
		return nil, nil, err
	} else if cfg.Name == "" {
		return nil, nil, &errdefs.LifecycleError{Kind: errdefs.NameRequired}
	} else if o.Guard.Active() {
		return nil, nil, &errdefs.LifecycleError{Kind: errdefs.InsideContainer, Name: cfg.Name}
	}

	return cfg, driver, nil
}

func (o *Orchestrator) resolve(ctx context.Context, command string) (*config.Configuration, Driver, error) {
	cfg, err := o.Resolver.Resolve(ctx, o.Cwd, command)
	if err != nil {
		return nil, nil, err
	}
	o.Log.Debugf("using images[%d] of %s with image %s", cfg.Entry, cfg.ConfigFile, cfg.Image)

	var environment []string
	if cfg.Environment != nil {
		environment = cfg.Environment.Environ()
	}

	return cfg, o.NewDriver(environment), nil
}

// ensureImage makes the configured image available locally. A failed pull
// falls back to building the image.
func (o *Orchestrator) ensureImage(ctx context.Context, driver Driver, cfg *config.Configuration) error {
	exists, err := driver.ImageExists(ctx, cfg.Image)
	if err != nil {
		return err
	} else if exists {
		return nil
	}

	err = driver.PullImage(ctx, cfg.Image)
	if err == nil {
		return nil
	}

	var commandError *errdefs.CommandError
	if errors.As(err, &commandError) {
		return err
	}
	o.Log.Debugf("pull image %s: %v", cfg.Image, err)

	err = driver.BuildImage(ctx, docker.BuildOptions{
		Image:       cfg.Image,
		Dockerfile:  cfg.Dockerfile,
		Context:     cfg.RootPath,
		WorkdirPath: cfg.WorkdirPath,
		BuildArgs:   cfg.BuildArgs,
	})
	if err != nil {
		return &errdefs.LifecycleError{Kind: errdefs.ImageBuildFailed, Name: cfg.Image, Err: err}
	}

	return nil
}

// containerWorkdir maps cwd below the configuration root onto the workdir
// inside the container.
func containerWorkdir(cfg *config.Configuration, cwd string) (string, error) {
	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return "", &errdefs.PathError{Path: cwd, Reason: err.Error()}
	}

	rel, err := filepath.Rel(cfg.RootPath, cwd)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &errdefs.PathError{Path: cwd, Reason: "not below configuration root " + cfg.RootPath}
	}

	return path.Join(cfg.WorkdirPath, filepath.ToSlash(rel)), nil
}

func (o *Orchestrator) printCommand(args []string) error {
	engine := o.EngineCommand
	if engine == "" {
		engine = docker.DefaultCommand
	}

	_, err := fmt.Fprintln(o.stdout(), shellescape.QuoteCommand(append([]string{engine}, args...)))
	return err
}

func (o *Orchestrator) identity() docker.Identity {
	if o.Identity != nil {
		return *o.Identity
	}
	return docker.CurrentIdentity()
}

func (o *Orchestrator) isTerminal() bool {
	if o.IsTerminal != nil {
		return o.IsTerminal()
	}
	return isatty.IsTerminal(os.Stdin.Fd())
}

func (o *Orchestrator) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func (o *Orchestrator) env() *environ.Environment {
	if o.Env == nil {
		return environ.FromOS()
	}
	return o.Env
}
