package config

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"github.com/loft-sh/log"
	"github.com/skevetter/contain/pkg/environ"
	"github.com/skevetter/contain/pkg/errdefs"
	"github.com/skevetter/contain/pkg/shell"
	"github.com/skevetter/contain/pkg/version"
)

// VarRunner runs a var command in dir with env and returns its trimmed
// standard output.
type VarRunner func(ctx context.Context, command, dir string, env []string) (string, error)

// Resolver finds and materializes the configuration applying to a command.
type Resolver struct {
	// Version is compared against contain_min_version of every document.
	Version string
	// Env seeds the environment record of each resolution. It is never
	// modified.
	Env *environ.Environment

	runVar VarRunner
	log    log.Logger
}

func NewResolver(env *environ.Environment, logger log.Logger) *Resolver {
	return &Resolver{
		Version: version.GetVersion(),
		Env:     env,
		runVar:  shell.Output,
		log:     logger,
	}
}

// Resolve walks from startDir towards the filesystem root and returns the
// configuration of the nearest document declaring an image for command.
// Directories without a document, and documents without a matching entry,
// continue the walk; a document that is invalid stops it.
func (r *Resolver) Resolve(ctx context.Context, startDir, command string) (*Configuration, error) {
	if !utf8.ValidString(startDir) {
		return nil, &errdefs.PathError{Path: startDir, Reason: "not valid UTF-8"}
	}

	startDir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, &errdefs.PathError{Path: startDir, Reason: err.Error()}
	}

	env := environ.FromOS()
	if r.Env != nil {
		env = r.Env.Clone()
	}

	folders := ancestors(startDir)
	for i := 0; i < len(folders); i++ {
		folder := folders[i]
		file, err := FindDocument(folder)
		if err != nil {
			return nil, err
		} else if file == "" {
			continue
		}

		r.log.Debugf("found configuration %s", file)
		document, err := ParseDocument(file)
		if err != nil {
			return nil, err
		}

		env.Set(RootPathEnv, folder)
		err = r.checkVersion(document)
		if err != nil {
			return nil, err
		}

		index, err := document.Match(command)
		if err != nil {
			return nil, err
		} else if index < 0 {
			r.log.Debugf("no image entry for '%s' in %s, continuing with parent directory", command, file)
			continue
		}

		return r.materialize(ctx, folder, document, index, env)
	}

	return nil, &errdefs.NoConfigFoundError{Command: command, StartDir: startDir}
}

// ancestors returns dir followed by each of its parents up to the root.
func ancestors(dir string) []string {
	folders := []string{dir}
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return folders
		}
		folders = append(folders, parent)
		dir = parent
	}
}

func (r *Resolver) checkVersion(document *Document) error {
	if document.ContainMinVersion == "" {
		return nil
	}

	ok, err := version.CheckMinimum(document.ContainMinVersion, r.Version)
	if err != nil {
		return &errdefs.ConfigError{File: document.Origin, Field: "contain_min_version", Err: err}
	} else if !ok {
		return &errdefs.VersionError{File: document.Origin, Required: document.ContainMinVersion, Current: r.Version}
	}

	return nil
}

func (r *Resolver) materialize(ctx context.Context, folder string, document *Document, index int, env *environ.Environment) (*Configuration, error) {
	entry := document.Images[index]
	missing := func(field string) error {
		return &errdefs.MissingFieldError{File: document.Origin, Entry: index, Field: field}
	}

	if entry.Image == "" {
		return nil, missing("image")
	}
	if entry.Dockerfile == "" {
		return nil, missing("dockerfile")
	}

	for i, v := range entry.Var {
		if v.Name == "" {
			return nil, missing(fmt.Sprintf("var[%d].name", i))
		}
		if v.Command == "" {
			return nil, missing(fmt.Sprintf("var[%d].command", i))
		}

		r.log.Debugf("resolving variable %s", v.Name)
		value, err := r.runVar(ctx, v.Command, folder, env.Environ())
		if err != nil {
			return nil, &errdefs.CommandError{Command: v.Command, Err: err}
		}
		if !utf8.ValidString(value) {
			return nil, &errdefs.CommandError{Command: v.Command, Err: fmt.Errorf("output is not valid UTF-8")}
		}
		env.Set(v.Name, value)
	}

	x := &expander{env: env, file: document.Origin}
	cfg := &Configuration{
		Image:        x.expand("image", entry.Image),
		Name:         x.expand("name", entry.Name),
		Dockerfile:   x.expand("dockerfile", entry.Dockerfile),
		RootPath:     folder,
		DefaultShell: x.expand("default_shell", entry.DefaultShell),
		EnvVariables: x.expandList("env", entry.Env),
		BuildArgs:    x.expandList("build_args", entry.BuildArgs),
		Ports:        x.expandList("ports", entry.Ports),
		ConfigFile:   document.Origin,
		Entry:        index,
		Environment:  env,
	}

	for i, mount := range entry.Mounts {
		if mount.Type == "" {
			return nil, missing(fmt.Sprintf("mounts[%d].type", i))
		}
		if mount.Source == "" {
			return nil, missing(fmt.Sprintf("mounts[%d].src", i))
		}
		if mount.Target == "" {
			return nil, missing(fmt.Sprintf("mounts[%d].dst", i))
		}

		cfg.ExtraMounts = append(cfg.ExtraMounts, MountSpec{
			Type:    mount.Type,
			Source:  x.expand(fmt.Sprintf("mounts[%d].src", i), mount.Source),
			Target:  x.expand(fmt.Sprintf("mounts[%d].dst", i), mount.Target),
			Options: x.expand(fmt.Sprintf("mounts[%d].options", i), mount.Options),
		}.String())
	}
	if x.err != nil {
		return nil, x.err
	}

	for i, flag := range entry.Flags {
		if !slices.Contains(knownFlags, flag) {
			return nil, &errdefs.ConfigError{
				File:   document.Origin,
				Field:  fmt.Sprintf("flags[%d]", i),
				Reason: fmt.Sprintf("unknown flag '%s', expected one of %v", flag, knownFlags),
			}
		}
		if !slices.Contains(cfg.Flags, flag) {
			cfg.Flags = append(cfg.Flags, flag)
		}
	}

	cfg.WorkdirPath = DefaultWorkdir
	if workdir := env.Get(WorkdirEnv); workdir != "" {
		cfg.WorkdirPath = workdir
	}

	return cfg, nil
}

// expander expands fields against the resolution environment and keeps the
// first failure.
type expander struct {
	env  *environ.Environment
	file string
	err  error
}

func (x *expander) expand(field, value string) string {
	if x.err != nil {
		return ""
	}

	expanded, err := x.env.Expand(value)
	if err != nil {
		x.err = &errdefs.ConfigError{File: x.file, Field: field, Err: err}
		return ""
	}
	return expanded
}

func (x *expander) expandList(field string, values []string) []string {
	if values == nil {
		return nil
	}

	ret := make([]string, 0, len(values))
	for i, value := range values {
		ret = append(ret, x.expand(fmt.Sprintf("%s[%d]", field, i), value))
	}
	return ret
}
