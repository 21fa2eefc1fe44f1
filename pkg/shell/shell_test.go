package shell

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ShellTestSuite struct {
	suite.Suite
}

func TestShellTestSuite(t *testing.T) {
	suite.Run(t, new(ShellTestSuite))
}

func (s *ShellTestSuite) TestOutputTrimsStdout() {
	out, err := Output(context.Background(), "echo '  hello  '", s.T().TempDir(), []string{})
	s.Require().NoError(err)
	s.Equal("hello", out)
}

func (s *ShellTestSuite) TestOutputUsesGivenEnvironment() {
	out, err := Output(context.Background(), "echo $GREETING-$TARGET", s.T().TempDir(), []string{"GREETING=hi", "TARGET=there"})
	s.Require().NoError(err)
	s.Equal("hi-there", out)
}

func (s *ShellTestSuite) TestOutputRunsInDir() {
	dir := s.T().TempDir()
	out, err := Output(context.Background(), "pwd", dir, []string{})
	s.Require().NoError(err)
	s.Equal(dir, out)
}

func (s *ShellTestSuite) TestOutputFailingCommand() {
	_, err := Output(context.Background(), "exit 3", s.T().TempDir(), []string{})
	s.Error(err)
}

func (s *ShellTestSuite) TestOutputParseError() {
	_, err := Output(context.Background(), "echo (", s.T().TempDir(), []string{})
	s.ErrorContains(err, "parse shell command")
}

func (s *ShellTestSuite) TestIsExecutableShell() {
	s.False(isExecutableShell(""))
	s.False(isExecutableShell(s.T().TempDir()))
}
