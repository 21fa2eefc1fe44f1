package command

import (
	"errors"
	"os/exec"
	"strings"

	"github.com/skevetter/contain/pkg/errdefs"
)

// WrapCommandError classifies the error returned by running name with args.
// A process that ran and exited non-zero becomes an errdefs.EngineError
// carrying its exit code and captured stderr; a process that could not be
// started at all becomes an errdefs.CommandError.
func WrapCommandError(name string, args []string, stderr []byte, err error) error {
	if err == nil {
		return nil
	}

	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		if len(stderr) == 0 {
			stderr = exitError.Stderr
		}
		return &errdefs.EngineError{
			Command:  name,
			Args:     args,
			ExitCode: exitError.ExitCode(),
			Stderr:   strings.TrimSpace(string(stderr)),
		}
	}

	return &errdefs.CommandError{
		Command: name,
		Args:    args,
		Err:     err,
	}
}

// ExitCode returns the exit code of a process that ran and exited, and
// false if err does not describe such a process.
func ExitCode(err error) (int, bool) {
	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return exitError.ExitCode(), true
	}

	var engineError *errdefs.EngineError
	if errors.As(err, &engineError) {
		return engineError.ExitCode, true
	}

	return 0, false
}
