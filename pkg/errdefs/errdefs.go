// Package errdefs holds the typed errors surfaced by contain. Every variant
// carries enough context (file, field, command, container name) to render a
// single precise line for the user.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError is returned for a configuration document that exists but is
// invalid: it does not parse, or a field holds an unusable value.
type ConfigError struct {
	File   string
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "invalid configuration"
	if e.File != "" {
		msg += " " + e.File
	}
	if e.Field != "" {
		msg += " field " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// MissingFieldError is returned when a required field of the matched image
// entry is absent. Field is index qualified, e.g. mounts[2].src.
type MissingFieldError struct {
	File  string
	Entry int
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %s in images[%d] of %s", e.Field, e.Entry, e.File)
}

// VersionError is returned when a document requires a newer contain.
type VersionError struct {
	File     string
	Required string
	Current  string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s requires contain %s or newer, running %s", e.File, e.Required, e.Current)
}

// NoConfigFoundError is returned when the walk reached the filesystem root
// without a document that declares an image for the command.
type NoConfigFoundError struct {
	Command  string
	StartDir string
}

func (e *NoConfigFoundError) Error() string {
	command := e.Command
	if command == "" {
		command = "any command"
	}
	return fmt.Sprintf("no image found for '%s' in .contain.yaml of %s or any parent directory", command, e.StartDir)
}

// PathError is returned for paths that cannot be used: not valid UTF-8, or a
// working directory outside of the resolved configuration root.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %s: %s", e.Path, e.Reason)
}

// CommandError is returned when a command could not be executed at all (the
// engine binary is missing or not executable), or when a var command of a
// configuration document fails.
type CommandError struct {
	Command string
	Args    []string
	Err     error
}

func (e *CommandError) Error() string {
	cmd := e.Command
	if len(e.Args) > 0 {
		cmd += " " + strings.Join(e.Args, " ")
	}
	return fmt.Sprintf("run command '%s': %v", cmd, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// EngineError is returned when the engine was invoked correctly but reported
// a failure through a non-zero exit code.
type EngineError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s %s exited with code %d", e.Command, strings.Join(e.Args, " "), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

type LifecycleKind string

const (
	NameRequired     LifecycleKind = "name required"
	AlreadyRunning   LifecycleKind = "already running"
	InsideContainer  LifecycleKind = "inside container"
	ImageBuildFailed LifecycleKind = "image build failed"
	StartFailed      LifecycleKind = "start failed"
	StopFailed       LifecycleKind = "stop failed"
	RemoveFailed     LifecycleKind = "remove failed"
)

// LifecycleError is returned by the orchestrator when a lifecycle step
// cannot proceed.
type LifecycleError struct {
	Kind LifecycleKind
	Name string
	Err  error
}

func (e *LifecycleError) Error() string {
	var msg string
	switch e.Kind {
	case NameRequired:
		msg = "a container name is required, set 'name' in the matching image entry"
	case AlreadyRunning:
		msg = fmt.Sprintf("container %s is already running", e.Name)
	case InsideContainer:
		msg = "refusing to manage containers from inside a container"
	case ImageBuildFailed:
		msg = fmt.Sprintf("image %s could not be found, pulled or built", e.Name)
	case StartFailed:
		msg = fmt.Sprintf("failed to start container %s", e.Name)
	case StopFailed:
		msg = fmt.Sprintf("failed to stop container %s", e.Name)
	case RemoveFailed:
		msg = fmt.Sprintf("failed to remove container %s", e.Name)
	default:
		msg = string(e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// IsLifecycle reports whether err is a LifecycleError of the given kind.
func IsLifecycle(err error, kind LifecycleKind) bool {
	var le *LifecycleError
	return errors.As(err, &le) && le.Kind == kind
}

// UnsupportedParameterError is returned for malformed CLI parameters.
type UnsupportedParameterError struct {
	Parameter string
	Value     string
	Reason    string
}

func (e *UnsupportedParameterError) Error() string {
	return fmt.Sprintf("unsupported value '%s' for %s: %s", e.Value, e.Parameter, e.Reason)
}
