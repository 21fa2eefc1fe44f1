package lifecycle

import (
	"github.com/skevetter/contain/pkg/config"
	"github.com/skevetter/contain/pkg/docker"
)

type runMode int

const (
	// modeRun starts a new container in the foreground.
	modeRun runMode = iota
	// modeDetached starts a new long lived container in the background.
	modeDetached
	// modeExec runs a command in an existing container.
	modeExec
)

type runParams struct {
	mode     runMode
	config   *config.Configuration
	options  GlobalOptions
	identity docker.Identity
	// workdir is the working directory inside the container.
	workdir string
	tty     bool
	command string
	args    []string
}

func (p *runParams) keep() bool {
	return p.options.KeepContainer || p.config.HasFlag(config.FlagKeep)
}

func (p *runParams) root() bool {
	return p.options.RunAsRoot || p.config.HasFlag(config.FlagRoot)
}

func (p *runParams) interactive() bool {
	return p.options.Interactive || p.config.HasFlag(config.FlagInteractive)
}

type runArgsBuilder struct {
	args   []string
	params *runParams
}

// buildRunArgs assembles the engine arguments for params. Some engines parse
// options positionally, so the order is fixed.
func buildRunArgs(params *runParams) []string {
	b := &runArgsBuilder{params: params}

	if params.mode == modeExec {
		b.addVerb().
			addInteractive().
			addUser().
			addWorkdir().
			addEnv().
			addContainerName().
			addCommand()
		return b.args
	}

	b.addVerb().
		addName().
		addUser().
		addRemove().
		addInteractive().
		addPrivileged().
		addWorkdir().
		addEnv().
		addWorkspaceMount().
		addMounts().
		addPorts().
		addImage().
		addCommand()

	return b.args
}

func (b *runArgsBuilder) addVerb() *runArgsBuilder {
	switch b.params.mode {
	case modeExec:
		b.args = append(b.args, "exec")
	case modeDetached:
		b.args = append(b.args, "run", "-d")
	default:
		b.args = append(b.args, "run")
	}
	return b
}

func (b *runArgsBuilder) addName() *runArgsBuilder {
	name := b.params.config.Name
	if name == "" {
		return b
	}
	if b.params.mode == modeRun && b.params.options.SkipName {
		return b
	}

	b.args = append(b.args, "--name", name)
	return b
}

func (b *runArgsBuilder) addUser() *runArgsBuilder {
	if b.params.root() {
		return b
	}

	b.args = append(b.args, "-u", b.params.identity.UID+":"+b.params.identity.GID)
	return b
}

func (b *runArgsBuilder) addRemove() *runArgsBuilder {
	if b.params.mode == modeDetached || b.params.keep() {
		return b
	}

	b.args = append(b.args, "--rm")
	return b
}

func (b *runArgsBuilder) addInteractive() *runArgsBuilder {
	if b.params.mode == modeDetached || !b.params.interactive() {
		return b
	}

	b.args = append(b.args, "-i")
	if b.params.tty {
		b.args = append(b.args, "-t")
	}
	return b
}

func (b *runArgsBuilder) addPrivileged() *runArgsBuilder {
	if b.params.config.HasFlag(config.FlagPrivileged) {
		b.args = append(b.args, "--privileged")
	}
	return b
}

func (b *runArgsBuilder) addWorkdir() *runArgsBuilder {
	b.args = append(b.args, "-w", b.params.workdir)
	return b
}

func (b *runArgsBuilder) addEnv() *runArgsBuilder {
	for _, env := range b.params.config.EnvVariables {
		b.args = append(b.args, "-e", env)
	}
	for _, env := range b.params.options.CliEnvVariables {
		b.args = append(b.args, "-e", env)
	}
	return b
}

func (b *runArgsBuilder) addWorkspaceMount() *runArgsBuilder {
	mount := config.MountSpec{
		Type:   "bind",
		Source: b.params.config.RootPath,
		Target: b.params.config.WorkdirPath,
	}

	b.args = append(b.args, "--mount", mount.String())
	return b
}

func (b *runArgsBuilder) addMounts() *runArgsBuilder {
	for _, mount := range b.params.config.ExtraMounts {
		b.args = append(b.args, "--mount", mount)
	}
	return b
}

func (b *runArgsBuilder) addPorts() *runArgsBuilder {
	if b.params.options.SkipPorts {
		return b
	}

	for _, port := range b.params.config.Ports {
		b.args = append(b.args, "-p", port)
	}
	return b
}

func (b *runArgsBuilder) addImage() *runArgsBuilder {
	b.args = append(b.args, b.params.config.Image)
	return b
}

func (b *runArgsBuilder) addContainerName() *runArgsBuilder {
	b.args = append(b.args, b.params.config.Name)
	return b
}

func (b *runArgsBuilder) addCommand() *runArgsBuilder {
	if b.params.command != "" {
		b.args = append(b.args, b.params.command)
	}
	b.args = append(b.args, b.params.args...)
	return b
}
