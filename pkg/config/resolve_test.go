package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/loft-sh/log"
	"github.com/skevetter/contain/pkg/environ"
	"github.com/skevetter/contain/pkg/errdefs"
	"github.com/stretchr/testify/suite"
)

type ResolveTestSuite struct {
	suite.Suite
	root     string
	resolver *Resolver
	varCalls []string
}

func TestResolveTestSuite(t *testing.T) {
	suite.Run(t, new(ResolveTestSuite))
}

func (s *ResolveTestSuite) SetupTest() {
	s.root = s.T().TempDir()
	s.varCalls = nil
	s.resolver = &Resolver{
		Version: "0.4.0",
		Env:     environ.New([]string{"HOME=/home/dev", "USER=dev"}),
		runVar: func(ctx context.Context, command, dir string, env []string) (string, error) {
			s.varCalls = append(s.varCalls, command)
			if command == "false" {
				return "", fmt.Errorf("exit status 1")
			}
			return "out-of-" + command, nil
		},
		log: log.Discard,
	}
}

func (s *ResolveTestSuite) writeDocument(dir, content string) string {
	s.Require().NoError(os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, ConfigFileName)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (s *ResolveTestSuite) mkdir(parts ...string) string {
	dir := filepath.Join(append([]string{s.root}, parts...)...)
	s.Require().NoError(os.MkdirAll(dir, 0o755))
	return dir
}

func (s *ResolveTestSuite) TestResolveNearestDocument() {
	s.writeDocument(s.root, `
images:
  - commands: any
    image: far
    dockerfile: Dockerfile
`)
	near := s.mkdir("project")
	s.writeDocument(near, `
images:
  - commands: [ls, cat]
    image: near
    dockerfile: Dockerfile
`)
	start := s.mkdir("project", "src", "pkg")

	cfg, err := s.resolver.Resolve(context.Background(), start, "ls")
	s.Require().NoError(err)
	s.Equal("near", cfg.Image)
	s.Equal(near, cfg.RootPath)
	s.Equal(filepath.Join(near, ConfigFileName), cfg.ConfigFile)
	s.Equal(near, cfg.Environment.Get(RootPathEnv))
}

func (s *ResolveTestSuite) TestResolveContinuesWalkWithoutMatch() {
	s.writeDocument(s.root, `
images:
  - commands: make
    image: builder
    dockerfile: Dockerfile.build
`)
	near := s.mkdir("project")
	s.writeDocument(near, `
images:
  - commands: [ls, cat]
    image: near
    dockerfile: Dockerfile
`)

	cfg, err := s.resolver.Resolve(context.Background(), near, "make")
	s.Require().NoError(err)
	s.Equal("builder", cfg.Image)
	s.Equal(s.root, cfg.RootPath)
	s.Equal(s.root, cfg.Environment.Get(RootPathEnv))
}

func (s *ResolveTestSuite) TestResolveAnyMatchesInDeclarationOrder() {
	s.writeDocument(s.root, `
images:
  - commands: any
    image: catch-all
    dockerfile: Dockerfile
  - commands: lint
    image: linter
    dockerfile: Dockerfile
`)

	for _, command := range []string{"lint", "go", "whatever"} {
		cfg, err := s.resolver.Resolve(context.Background(), s.root, command)
		s.Require().NoError(err)
		s.Equal("catch-all", cfg.Image, command)
		s.Equal(0, cfg.Entry)
	}
}

func (s *ResolveTestSuite) TestResolveEmptyCommandMatchesFirstEntry() {
	s.writeDocument(s.root, `
images:
  - commands: [node]
    image: node:20
    dockerfile: Dockerfile
    name: node-dev
`)

	cfg, err := s.resolver.Resolve(context.Background(), s.root, "")
	s.Require().NoError(err)
	s.Equal("node-dev", cfg.Name)
}

func (s *ResolveTestSuite) TestResolveInvalidDocumentStopsWalk() {
	s.writeDocument(s.root, `
images:
  - commands: any
    image: far
    dockerfile: Dockerfile
`)
	near := s.mkdir("project")
	s.writeDocument(near, "images: [this is: not valid")

	_, err := s.resolver.Resolve(context.Background(), near, "ls")
	var configError *errdefs.ConfigError
	s.Require().True(errors.As(err, &configError), "got %v", err)
	s.Equal(filepath.Join(near, ConfigFileName), configError.File)
}

func (s *ResolveTestSuite) TestResolveWrongCommandsType() {
	s.writeDocument(s.root, `
images:
  - commands: {ls: true}
    image: busybox
    dockerfile: Dockerfile
`)

	_, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	var configError *errdefs.ConfigError
	s.True(errors.As(err, &configError), "got %v", err)
}

func (s *ResolveTestSuite) TestResolveMissingImages() {
	s.writeDocument(s.root, "contain_min_version: 0.1.0\n")

	_, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	var configError *errdefs.ConfigError
	s.Require().True(errors.As(err, &configError), "got %v", err)
	s.Equal("images", configError.Field)
}

func (s *ResolveTestSuite) TestResolveNoConfigFound() {
	start := s.mkdir("empty", "tree")

	_, err := s.resolver.Resolve(context.Background(), start, "ls")
	var notFound *errdefs.NoConfigFoundError
	s.Require().True(errors.As(err, &notFound), "got %v", err)
	s.Equal("ls", notFound.Command)
}

func (s *ResolveTestSuite) TestResolveVersionGate() {
	s.writeDocument(s.root, `
contain_min_version: 0.9.0
images:
  - commands: any
    image: busybox
    dockerfile: Dockerfile
    var:
      - name: SHOULD_NOT_RUN
        command: date
`)

	_, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	var versionError *errdefs.VersionError
	s.Require().True(errors.As(err, &versionError), "got %v", err)
	s.Equal("0.9.0", versionError.Required)
	s.Equal("0.4.0", versionError.Current)
	s.Empty(s.varCalls)
}

func (s *ResolveTestSuite) TestResolveVersionGateOnNonMatchingDocument() {
	s.writeDocument(s.root, `
images:
  - commands: any
    image: busybox
    dockerfile: Dockerfile
`)
	near := s.mkdir("project")
	s.writeDocument(near, `
contain_min_version: 2.0.0
images:
  - commands: make
    image: builder
    dockerfile: Dockerfile
`)

	_, err := s.resolver.Resolve(context.Background(), near, "ls")
	var versionError *errdefs.VersionError
	s.True(errors.As(err, &versionError), "got %v", err)
}

func (s *ResolveTestSuite) TestResolveInvalidMinVersion() {
	s.writeDocument(s.root, `
contain_min_version: soon
images:
  - commands: any
    image: busybox
    dockerfile: Dockerfile
`)

	_, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	var configError *errdefs.ConfigError
	s.Require().True(errors.As(err, &configError), "got %v", err)
	s.Equal("contain_min_version", configError.Field)
}

func (s *ResolveTestSuite) TestResolveMissingRequiredFields() {
	s.writeDocument(s.root, `
images:
  - commands: any
    dockerfile: Dockerfile
`)
	_, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	var missing *errdefs.MissingFieldError
	s.Require().True(errors.As(err, &missing), "got %v", err)
	s.Equal("image", missing.Field)

	s.writeDocument(s.root, `
images:
  - commands: any
    image: busybox
`)
	_, err = s.resolver.Resolve(context.Background(), s.root, "ls")
	s.Require().True(errors.As(err, &missing), "got %v", err)
	s.Equal("dockerfile", missing.Field)
}

func (s *ResolveTestSuite) TestResolveMissingCommands() {
	s.writeDocument(s.root, `
images:
  - image: busybox
    dockerfile: Dockerfile
`)

	_, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	var missing *errdefs.MissingFieldError
	s.Require().True(errors.As(err, &missing), "got %v", err)
	s.Equal("commands", missing.Field)
	s.Equal(0, missing.Entry)
}

func (s *ResolveTestSuite) TestResolveMountMissingField() {
	s.writeDocument(s.root, `
images:
  - commands: any
    image: busybox
    dockerfile: Dockerfile
    mounts:
      - {type: bind, src: /a, dst: /a}
      - {type: volume, src: cache, dst: /cache}
      - {type: bind, dst: /b}
`)

	_, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	var missing *errdefs.MissingFieldError
	s.Require().True(errors.As(err, &missing), "got %v", err)
	s.Equal("mounts[2].src", missing.Field)
}

func (s *ResolveTestSuite) TestResolveExpandsFields() {
	s.writeDocument(s.root, `
images:
  - commands: any
    image: registry/$USER/tool
    dockerfile: Dockerfile
    name: ${USER}-tool
    env: ["CACHE=$HOME/.cache", "PLAIN=1"]
    build_args: ["OWNER=$USER"]
    ports: ["8080:80"]
    mounts:
      - type: bind
        src: $HOME/.ssh
        dst: /home/$USER/.ssh
        options: readonly
      - type: volume
        src: cache
        dst: ${CONTAIN_ROOT_PATH}/cache
    flags: [root, k, root]
`)

	cfg, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	s.Require().NoError(err)
	s.Equal("registry/dev/tool", cfg.Image)
	s.Equal("dev-tool", cfg.Name)
	s.Equal([]string{"CACHE=/home/dev/.cache", "PLAIN=1"}, cfg.EnvVariables)
	s.Equal([]string{"OWNER=dev"}, cfg.BuildArgs)
	s.Equal([]string{"8080:80"}, cfg.Ports)
	s.Equal([]string{
		"type=bind,src=/home/dev/.ssh,dst=/home/dev/.ssh,readonly",
		"type=volume,src=cache,dst=" + s.root + "/cache",
	}, cfg.ExtraMounts)
	s.Equal([]string{FlagRoot, FlagKeep}, cfg.Flags)
	s.True(cfg.HasFlag(FlagKeep))
	s.False(cfg.HasFlag(FlagPrivileged))
	s.Equal(DefaultWorkdir, cfg.WorkdirPath)
}

func (s *ResolveTestSuite) TestResolveUnknownFlag() {
	s.writeDocument(s.root, `
images:
  - commands: any
    image: busybox
    dockerfile: Dockerfile
    flags: [k, detach]
`)

	_, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	var configError *errdefs.ConfigError
	s.Require().True(errors.As(err, &configError), "got %v", err)
	s.Equal("flags[1]", configError.Field)
}

func (s *ResolveTestSuite) TestResolveVarsVisibleToLaterFields() {
	s.writeDocument(s.root, `
images:
  - commands: any
    image: tool:$TAG
    dockerfile: Dockerfile
    var:
      - name: TAG
        command: git-describe
      - name: BRANCH
        command: git-branch
    env: ["BRANCH=$BRANCH"]
`)

	cfg, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	s.Require().NoError(err)
	s.Equal([]string{"git-describe", "git-branch"}, s.varCalls)
	s.Equal("tool:out-of-git-describe", cfg.Image)
	s.Equal([]string{"BRANCH=out-of-git-branch"}, cfg.EnvVariables)
	s.Equal("out-of-git-describe", cfg.Environment.Get("TAG"))

	_, ok := os.LookupEnv("TAG")
	s.False(ok, "var declarations must not leak into the process environment")
}

func (s *ResolveTestSuite) TestResolveFailingVar() {
	s.writeDocument(s.root, `
images:
  - commands: any
    image: busybox
    dockerfile: Dockerfile
    var:
      - name: BROKEN
        command: "false"
      - name: NEVER
        command: never
`)

	_, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	var commandError *errdefs.CommandError
	s.Require().True(errors.As(err, &commandError), "got %v", err)
	s.Equal("false", commandError.Command)
	s.Equal([]string{"false"}, s.varCalls)
}

func (s *ResolveTestSuite) TestResolveWorkdirOverride() {
	s.resolver.Env.Set(WorkdirEnv, "/src")
	s.writeDocument(s.root, `
images:
  - commands: any
    image: busybox
    dockerfile: Dockerfile
`)

	cfg, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	s.Require().NoError(err)
	s.Equal("/src", cfg.WorkdirPath)
}

func (s *ResolveTestSuite) TestResolveIsRepeatable() {
	s.writeDocument(s.root, `
images:
  - commands: [ls]
    image: busybox
    dockerfile: Dockerfile
    name: box
    env: ["A=$HOME"]
    ports: ["8080:80"]
`)

	first, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	s.Require().NoError(err)
	second, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	s.Require().NoError(err)

	s.Equal(first.Environment.Environ(), second.Environment.Environ())
	first.Environment, second.Environment = nil, nil
	s.Equal(first, second)
	s.Empty(s.resolver.Env.Get(RootPathEnv))
}

func (s *ResolveTestSuite) TestResolveAlternateFileName() {
	s.Require().NoError(os.WriteFile(filepath.Join(s.root, AltConfigFileName), []byte(`
images:
  - commands: any
    image: alt
    dockerfile: Dockerfile
`), 0o644))

	cfg, err := s.resolver.Resolve(context.Background(), s.root, "ls")
	s.Require().NoError(err)
	s.Equal("alt", cfg.Image)
}

func (s *ResolveTestSuite) TestResolveRealShellVar() {
	resolver := NewResolver(environ.New([]string{"NAME=world"}), log.Discard)
	resolver.Version = "0.4.0"
	s.writeDocument(s.root, `
images:
  - commands: any
    image: busybox
    dockerfile: Dockerfile
    var:
      - name: GREETING
        command: echo "hello $NAME"
      - name: ROOT
        command: echo $CONTAIN_ROOT_PATH
`)

	cfg, err := resolver.Resolve(context.Background(), s.root, "ls")
	s.Require().NoError(err)
	s.Equal("hello world", cfg.Environment.Get("GREETING"))
	s.Equal(s.root, cfg.Environment.Get("ROOT"))
}

func (s *ResolveTestSuite) TestAncestors() {
	s.Equal([]string{"/a/b", "/a", "/"}, ancestors("/a/b"))
	s.Equal([]string{"/"}, ancestors("/"))
}
