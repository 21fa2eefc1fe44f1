package lifecycle

import (
	"context"
	"strings"

	"github.com/skevetter/contain/pkg/config"
	"github.com/skevetter/contain/pkg/docker"
	"github.com/skevetter/contain/pkg/errdefs"
)

// fakeEngine keeps container state in memory and records every call.
type fakeEngine struct {
	images     map[string]bool
	running    map[string]bool
	stopped    map[string]bool
	pullFails  bool
	buildFails bool
	stopFails  bool
	exitCode   int

	calls []string
	built []docker.BuildOptions
	runs  [][]string
	execs [][]string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		images:  map[string]bool{},
		running: map[string]bool{},
		stopped: map[string]bool{},
	}
}

func (f *fakeEngine) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeEngine) ImageExists(_ context.Context, image string) (bool, error) {
	f.record("image-exists " + image)
	return f.images[image], nil
}

func (f *fakeEngine) PullImage(_ context.Context, image string) error {
	f.record("pull " + image)
	if f.pullFails {
		return &errdefs.EngineError{Command: "docker", Args: []string{"pull", image}, ExitCode: 1}
	}
	f.images[image] = true
	return nil
}

func (f *fakeEngine) BuildImage(_ context.Context, options docker.BuildOptions) error {
	f.record("build " + options.Image)
	f.built = append(f.built, options)
	if f.buildFails {
		return &errdefs.EngineError{Command: "docker", Args: []string{"build"}, ExitCode: 1}
	}
	f.images[options.Image] = true
	return nil
}

func (f *fakeEngine) ContainerExists(_ context.Context, name string) (bool, error) {
	return f.running[name], nil
}

func (f *fakeEngine) ContainerIsStopped(_ context.Context, name string) (bool, error) {
	return f.running[name] || f.stopped[name], nil
}

func (f *fakeEngine) GetContainerInfo(_ context.Context, name string) (*docker.ContainerInfo, error) {
	switch {
	case f.running[name]:
		return &docker.ContainerInfo{Name: name, Status: "running", Running: true, Image: "tool", Created: "yesterday", Ports: []string{"0.0.0.0:8080->80/tcp"}}, nil
	case f.stopped[name]:
		return &docker.ContainerInfo{Name: name, Status: "exited", Image: "tool"}, nil
	}
	return nil, nil
}

func (f *fakeEngine) StartContainer(_ context.Context, name string) error {
	f.record("start " + name)
	delete(f.stopped, name)
	f.running[name] = true
	return nil
}

func (f *fakeEngine) Stop(_ context.Context, name string) error {
	f.record("stop " + name)
	if f.stopFails {
		return &errdefs.EngineError{Command: "docker", Args: []string{"stop", name}, ExitCode: 1}
	}
	delete(f.running, name)
	f.stopped[name] = true
	return nil
}

func (f *fakeEngine) Remove(_ context.Context, name string) error {
	f.record("rm " + name)
	delete(f.stopped, name)
	return nil
}

func (f *fakeEngine) RunContainer(_ context.Context, args []string) (int, error) {
	f.record(strings.Join(args, " "))
	f.runs = append(f.runs, args)
	if len(args) > 1 && args[1] == "-d" {
		for i, arg := range args {
			if arg == "--name" {
				f.running[args[i+1]] = true
			}
		}
	}
	return f.exitCode, nil
}

func (f *fakeEngine) ExecInto(_ context.Context, args []string) (int, error) {
	f.record(strings.Join(args, " "))
	f.execs = append(f.execs, args)
	return f.exitCode, nil
}

type fakeResolver struct {
	config   *config.Configuration
	err      error
	commands []string
	dirs     []string
}

func (r *fakeResolver) Resolve(_ context.Context, startDir, command string) (*config.Configuration, error) {
	r.dirs = append(r.dirs, startDir)
	r.commands = append(r.commands, command)
	if r.err != nil {
		return nil, r.err
	}
	cfg := *r.config
	return &cfg, nil
}

type fakeGuard struct {
	active bool
	code   int
	err    error

	command string
	args    []string
	env     []string
}

func (g *fakeGuard) Active() bool {
	return g.active
}

func (g *fakeGuard) Exec(_ context.Context, command string, args []string, env []string) (int, error) {
	g.command, g.args, g.env = command, args, env
	return g.code, g.err
}
