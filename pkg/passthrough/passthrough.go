// Package passthrough detects whether contain already runs inside a
// container, in which case commands run directly instead of in a new one.
package passthrough

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/loft-sh/log"
	containcommand "github.com/skevetter/contain/pkg/command"
	"github.com/skevetter/contain/pkg/environ"
)

// Env forces passthrough on or off regardless of the marker files.
const Env = "CONTAIN_PASSTHROUGH"

// ExecFailedCode is returned when the target command could not be started.
const ExecFailedCode = 127

// DefaultMarkers are files container engines create inside containers.
var DefaultMarkers = []string{"/.dockerenv", "/run/.containerenv"}

type Guard struct {
	Env     *environ.Environment
	Markers []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Log log.Logger
}

func NewGuard(env *environ.Environment, logger log.Logger) *Guard {
	return &Guard{
		Env:     env,
		Markers: DefaultMarkers,
		Log:     logger,
	}
}

// Active reports whether commands should run directly. An explicit
// CONTAIN_PASSTHROUGH value wins over the marker files; values that are
// neither truthy nor falsy are ignored.
func (g *Guard) Active() bool {
	if value, ok := g.Env.Lookup(Env); ok {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		default:
			g.Log.Debugf("ignoring %s=%s", Env, value)
		}
	}

	for _, marker := range g.Markers {
		if _, err := os.Stat(marker); err == nil {
			g.Log.Debugf("found %s, running inside a container", marker)
			return true
		}
	}

	return false
}

// Exec runs command with args on the current system with env applied on
// top of the environment and returns its exit code. A command that cannot
// be started yields ExecFailedCode and the start error.
func (g *Guard) Exec(ctx context.Context, command string, args []string, env []string) (int, error) {
	childEnv := g.Env.Clone()
	for _, pair := range env {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			// KEY alone forwards the current value, which the child inherits
			continue
		}
		childEnv.Set(key, value)
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = childEnv.Environ()
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if g.Stdin != nil {
		cmd.Stdin = g.Stdin
	}
	if g.Stdout != nil {
		cmd.Stdout = g.Stdout
	}
	if g.Stderr != nil {
		cmd.Stderr = g.Stderr
	}

	g.Log.Debugf("running %s %s", command, strings.Join(args, " "))
	err := cmd.Run()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			if code := exitError.ExitCode(); code >= 0 {
				return code, nil
			}
			// terminated by a signal
			return 1, nil
		}
		return ExecFailedCode, containcommand.WrapCommandError(command, args, nil, err)
	}

	return 0, nil
}
