package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// RunEmulatedShell runs command with the in-process POSIX shell interpreter.
// env is the complete environment of the command and dir its working
// directory; a nil env falls back to the process environment.
func RunEmulatedShell(ctx context.Context, command string, dir string, stdin io.Reader, stdout io.Writer, stderr io.Writer, env []string) error {
	command = strings.ReplaceAll(command, "\r", "")

	// Let's parse the complete command
	parsed, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return fmt.Errorf("parse shell command %w", err)
	}

	if env == nil {
		env = append([]string{}, os.Environ()...)
	}

	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	defaultOpenHandler := interp.DefaultOpenHandler()
	defaultExecHandler := interp.DefaultExecHandler(2 * time.Second)
	options := []interp.RunnerOption{
		interp.StdIO(stdin, stdout, stderr),
		interp.Env(expand.ListEnviron(env...)),
		interp.Dir(dir),
		interp.ExecHandlers(func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
			return func(ctx context.Context, args []string) error {
				return defaultExecHandler(ctx, args)
			}
		}),
		interp.OpenHandler(func(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
			if path == "/dev/null" {
				return devNull{}, nil
			}

			return defaultOpenHandler(ctx, path, flag, perm)
		}),
	}

	r, err := interp.New(options...)
	if err != nil {
		return fmt.Errorf("create shell runner %w", err)
	}

	err = r.Run(ctx, parsed)
	if err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) && exitStatus == 0 {
			return nil
		}

		return err
	}

	return nil
}

// Output runs command like RunEmulatedShell and returns its standard output
// with surrounding whitespace trimmed. Standard error is attached to the
// returned error.
func Output(ctx context.Context, command string, dir string, env []string) (string, error) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := RunEmulatedShell(ctx, command, dir, nil, stdout, stderr, env)
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", errors.Wrap(err, msg)
		}
		return "", err
	}

	return strings.TrimSpace(stdout.String()), nil
}

var _ io.ReadWriteCloser = devNull{}

type devNull struct{}

func (devNull) Read(_ []byte) (int, error) {
	return 0, io.EOF
}

func (devNull) Write(p []byte) (int, error) {
	return len(p), nil
}

func (devNull) Close() error {
	return nil
}

// GetShell returns the login shell of userName (the current user if empty),
// falling back to $SHELL and the common shell locations.
func GetShell(userName string) ([]string, error) {
	if runtime.GOOS == "windows" {
		return nil, fmt.Errorf("no shell available on %s", runtime.GOOS)
	}

	shellCandidates := []string{}
	if shell, err := getUserShell(userName); err == nil {
		shellCandidates = append(shellCandidates, shell)
	}
	if shell, ok := os.LookupEnv("SHELL"); ok {
		shellCandidates = append(shellCandidates, shell)
	}
	shellCandidates = append(shellCandidates, "/bin/bash", "/usr/bin/bash", "/bin/sh", "/usr/bin/sh")

	for _, shell := range shellCandidates {
		if isExecutableShell(shell) {
			return []string{shell}, nil
		}
	}

	for _, shellName := range []string{"bash", "sh"} {
		if shellPath, err := exec.LookPath(shellName); err == nil && isExecutableShell(shellPath) {
			return []string{shellPath}, nil
		}
	}

	return nil, fmt.Errorf("no usable shell found")
}

// isExecutableShell checks if a shell path exists and is executable
func isExecutableShell(shellPath string) bool {
	if shellPath == "" {
		return false
	}

	info, err := os.Stat(shellPath)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && (info.Mode().Perm()&0111) != 0
}

func getUserShell(userName string) (string, error) {
	currentUser, err := findUser(userName)
	if err != nil {
		return "", err
	}
	output, err := exec.Command("getent", "passwd", currentUser.Username).Output()
	if err != nil {
		return "", err
	}

	shell := strings.Split(string(output), ":")
	if len(shell) != 7 {
		return "", fmt.Errorf("unexpected getent format: %s", string(output))
	}

	loginShell := strings.TrimSpace(shell[6])
	if loginShell == "nologin" || loginShell == "/usr/sbin/nologin" || loginShell == "/sbin/nologin" {
		return "", fmt.Errorf("no login shell configured")
	}

	return loginShell, nil
}

func findUser(userName string) (*user.User, error) {
	if userName != "" {
		return user.Lookup(userName)
	}

	return user.Current()
}
