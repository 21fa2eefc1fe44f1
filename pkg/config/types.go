package config

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/skevetter/contain/pkg/environ"
)

const (
	// ConfigFileName is the name of the per-directory configuration document.
	ConfigFileName = ".contain.yaml"
	// AltConfigFileName is accepted when ConfigFileName is absent.
	AltConfigFileName = ".contain.yml"

	// AnyCommand in an entry's commands matches every requested command.
	AnyCommand = "any"

	// RootPathEnv holds the directory of the document being resolved.
	RootPathEnv = "CONTAIN_ROOT_PATH"
	// WorkdirEnv overrides the in-container mount point of the project root.
	WorkdirEnv = "CONTAIN_WORKDIR"

	DefaultWorkdir = "/workdir"
)

const (
	FlagRoot        = "root"
	FlagKeep        = "k"
	FlagInteractive = "i"
	FlagPrivileged  = "privileged"
)

var knownFlags = []string{FlagRoot, FlagKeep, FlagInteractive, FlagPrivileged}

// Document is a parsed configuration document.
type Document struct {
	// ContainMinVersion is the minimum contain version able to use the document.
	ContainMinVersion string `json:"contain_min_version,omitempty"`

	Images []ImageEntry `json:"images,omitempty"`

	// Origin is the absolute path of the document
	Origin string `json:"-"`
}

// ImageEntry maps a set of commands to an image and how to run it.
type ImageEntry struct {
	Commands     Commands    `json:"commands,omitempty"`
	Image        string      `json:"image,omitempty"`
	Dockerfile   string      `json:"dockerfile,omitempty"`
	Name         string      `json:"name,omitempty"`
	DefaultShell string      `json:"default_shell,omitempty"`
	Env          []string    `json:"env,omitempty"`
	BuildArgs    []string    `json:"build_args,omitempty"`
	Var          []VarEntry  `json:"var,omitempty"`
	Mounts       []MountSpec `json:"mounts,omitempty"`
	Ports        []string    `json:"ports,omitempty"`
	Flags        []string    `json:"flags,omitempty"`
}

// VarEntry declares an environment variable whose value is the trimmed
// standard output of Command.
type VarEntry struct {
	Name    string `json:"name,omitempty"`
	Command string `json:"command,omitempty"`
}

type MountSpec struct {
	Type    string `json:"type,omitempty"`
	Source  string `json:"src,omitempty"`
	Target  string `json:"dst,omitempty"`
	Options string `json:"options,omitempty"`
}

// String formats the mount for the engine's --mount flag.
func (m MountSpec) String() string {
	spec := fmt.Sprintf("type=%s,src=%s,dst=%s", m.Type, m.Source, m.Target)
	if m.Options != "" {
		spec += "," + m.Options
	}
	return spec
}

// Commands is either a single command name or a list of them.
type Commands []string

func (c *Commands) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = Commands{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("commands must be a string or a list of strings")
	}
	*c = list
	return nil
}

// Matches reports whether the entry applies to command.
func (c Commands) Matches(command string) bool {
	for _, name := range c {
		if name == command || name == AnyCommand {
			return true
		}
	}
	return false
}

// Configuration is the fully resolved image entry for one invocation.
type Configuration struct {
	Image        string   `json:"image"`
	Name         string   `json:"name,omitempty"`
	Dockerfile   string   `json:"dockerfile"`
	RootPath     string   `json:"rootPath"`
	WorkdirPath  string   `json:"workdirPath"`
	Flags        []string `json:"flags,omitempty"`
	EnvVariables []string `json:"env,omitempty"`
	BuildArgs    []string `json:"buildArgs,omitempty"`
	ExtraMounts  []string `json:"mounts,omitempty"`
	Ports        []string `json:"ports,omitempty"`
	DefaultShell string   `json:"defaultShell,omitempty"`

	// ConfigFile is the document the configuration was resolved from and
	// Entry the index of the matching image entry within it.
	ConfigFile string `json:"configFile"`
	Entry      int    `json:"entry"`

	// Environment is the environment produced by resolution, including
	// CONTAIN_ROOT_PATH and var declarations. Subprocesses run with it.
	Environment *environ.Environment `json:"-"`
}

func (c *Configuration) HasFlag(flag string) bool {
	return slices.Contains(c.Flags, flag)
}
