package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/loft-sh/log"
	"github.com/skevetter/contain/pkg/command"
)

// DefaultCommand is the engine binary used when none is configured.
const DefaultCommand = "docker"

// DockerHelper drives a docker compatible engine through its command line.
// Every method blocks until the engine process exits.
type DockerHelper struct {
	DockerCommand string
	// Environment is the complete environment of engine processes. A nil
	// Environment inherits the environment of contain.
	Environment []string

	// Stdin, Stdout and Stderr are attached to containers started with
	// RunContainer and ExecInto. Nil values use the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Log log.Logger
}

func (r *DockerHelper) command() string {
	if r.DockerCommand == "" {
		return DefaultCommand
	}
	return r.DockerCommand
}

func (r *DockerHelper) buildCmd(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.command(), args...)
	if r.Environment != nil {
		cmd.Env = r.Environment
	}
	return cmd
}

// Run runs the engine with args and the given streams. A failure to invoke
// the engine is an errdefs.CommandError, a non-zero exit an
// errdefs.EngineError including what the engine wrote to stderr.
func (r *DockerHelper) Run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
	r.Log.Debugf("running %s %s", r.command(), strings.Join(args, " "))

	captured := &bytes.Buffer{}
	cmd := r.buildCmd(ctx, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	if file, ok := stderr.(*os.File); ok {
		// keep terminals attached directly
		cmd.Stderr = file
	} else if stderr != nil {
		cmd.Stderr = io.MultiWriter(stderr, captured)
	} else {
		cmd.Stderr = captured
	}

	err := cmd.Run()
	return command.WrapCommandError(r.command(), args, captured.Bytes(), err)
}

// Output runs the engine with args and returns its standard output.
func (r *DockerHelper) Output(ctx context.Context, args ...string) ([]byte, error) {
	stdout := &bytes.Buffer{}
	err := r.Run(ctx, args, nil, stdout, nil)
	if err != nil {
		return nil, err
	}

	return stdout.Bytes(), nil
}

// Inspect runs the engine's inspect for the given ids and decodes the
// resulting JSON array into obj.
func (r *DockerHelper) Inspect(ctx context.Context, ids []string, inspectType string, obj interface{}) error {
	args := []string{"inspect", "--type", inspectType}
	args = append(args, ids...)
	out, err := r.Output(ctx, args...)
	if err != nil {
		return err
	}

	err = json.Unmarshal(out, obj)
	if err != nil {
		return fmt.Errorf("parse inspect output: %w", err)
	}

	return nil
}

// interactive runs args attached to the configured streams and returns the
// exit code of the engine process, which for run and exec is the exit code
// of the command inside the container.
func (r *DockerHelper) interactive(ctx context.Context, args []string) (int, error) {
	stdin, stdout, stderr := r.Stdin, r.Stdout, r.Stderr
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	err := r.Run(ctx, args, stdin, stdout, stderr)
	if err != nil {
		if code, ok := command.ExitCode(err); ok {
			if code < 0 {
				// terminated by a signal
				return 1, nil
			}
			return code, nil
		}
		return 0, err
	}

	return 0, nil
}

// RunContainer runs a new container from fully assembled run arguments.
func (r *DockerHelper) RunContainer(ctx context.Context, args []string) (int, error) {
	return r.interactive(ctx, args)
}

// ExecInto executes a command in a running container from fully assembled
// exec arguments.
func (r *DockerHelper) ExecInto(ctx context.Context, args []string) (int, error) {
	return r.interactive(ctx, args)
}
