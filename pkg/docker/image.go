package docker

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DefaultUserName is passed as USER_NAME when the host user cannot be
// resolved.
const DefaultUserName = "contain"

// Build arguments injected ahead of the user declared ones.
const (
	BuildArgUserID   = "USER_ID"
	BuildArgGroupID  = "GROUP_ID"
	BuildArgUserName = "USER_NAME"
	BuildArgWorkdir  = "WORKDIR"
)

type BuildOptions struct {
	Image string
	// Dockerfile is relative to Context unless absolute.
	Dockerfile  string
	Context     string
	WorkdirPath string
	BuildArgs   []string
}

// ImageExists reports whether image is available locally. An engine that
// reports the image as unknown yields false without error.
func (r *DockerHelper) ImageExists(ctx context.Context, image string) (bool, error) {
	_, err := r.Output(ctx, "image", "inspect", "--format", "{{.Id}}", image)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// PullImage pulls image, streaming engine output to the log.
func (r *DockerHelper) PullImage(ctx context.Context, image string) error {
	writer := r.Log.Writer(logrus.InfoLevel, false)
	defer func() { _ = writer.Close() }()

	r.Log.Infof("pulling image %s", image)
	return r.Run(ctx, []string{"pull", image}, nil, writer, writer)
}

// BuildImage builds and tags options.Image from options.Dockerfile.
func (r *DockerHelper) BuildImage(ctx context.Context, options BuildOptions) error {
	writer := r.Log.Writer(logrus.InfoLevel, false)
	defer func() { _ = writer.Close() }()

	r.Log.Infof("building image %s from %s", options.Image, options.Dockerfile)
	return r.Run(ctx, BuildArgs(options, CurrentIdentity()), nil, writer, writer)
}

// Identity describes the host user an image should mirror.
type Identity struct {
	UID      string
	GID      string
	UserName string
}

// CurrentIdentity returns the identity of the user running contain.
func CurrentIdentity() Identity {
	identity := Identity{
		UID:      strconv.Itoa(os.Getuid()),
		GID:      strconv.Itoa(os.Getgid()),
		UserName: DefaultUserName,
	}

	if u, err := user.Current(); err == nil && u.Username != "" {
		identity.UserName = u.Username
	}

	return identity
}

// BuildArgs assembles the arguments of an image build. The identity and
// workdir build arguments always precede the declared ones.
func BuildArgs(options BuildOptions, identity Identity) []string {
	dockerfile := options.Dockerfile
	if !filepath.IsAbs(dockerfile) {
		dockerfile = filepath.Join(options.Context, dockerfile)
	}

	args := []string{"build", "-t", options.Image, "-f", dockerfile}
	args = append(args,
		"--build-arg", BuildArgUserID+"="+identity.UID,
		"--build-arg", BuildArgGroupID+"="+identity.GID,
		"--build-arg", BuildArgUserName+"="+identity.UserName,
		"--build-arg", BuildArgWorkdir+"="+options.WorkdirPath,
	)
	for _, buildArg := range options.BuildArgs {
		args = append(args, "--build-arg", buildArg)
	}

	return append(args, options.Context)
}
