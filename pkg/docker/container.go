package docker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/skevetter/contain/pkg/errdefs"
)

// ContainerInfo is a point in time view of a container. It is never cached:
// containers change state outside of contain.
type ContainerInfo struct {
	Name    string
	Status  string
	Running bool
	Image   string
	Created string
	Ports   []string
}

type containerDetails struct {
	Name    string                `json:"Name,omitempty"`
	Created string                `json:"Created,omitempty"`
	State   containerDetailsState `json:"State"`
	Config  struct {
		Image string `json:"Image,omitempty"`
	} `json:"Config"`
	NetworkSettings struct {
		Ports map[string][]portBinding `json:"Ports,omitempty"`
	} `json:"NetworkSettings"`
}

type containerDetailsState struct {
	Status  string `json:"Status,omitempty"`
	Running bool   `json:"Running,omitempty"`
}

type portBinding struct {
	HostIP   string `json:"HostIp,omitempty"`
	HostPort string `json:"HostPort,omitempty"`
}

// ContainerExists reports whether a running container is named exactly name.
func (r *DockerHelper) ContainerExists(ctx context.Context, name string) (bool, error) {
	return r.findByName(ctx, name, false)
}

// ContainerIsStopped reports whether a container named exactly name exists
// in any state. A known container is not necessarily a running one.
func (r *DockerHelper) ContainerIsStopped(ctx context.Context, name string) (bool, error) {
	return r.findByName(ctx, name, true)
}

func (r *DockerHelper) findByName(ctx context.Context, name string, all bool) (bool, error) {
	args := []string{"ps"}
	if all {
		args = append(args, "-a")
	}
	args = append(args, "--filter", "name="+name, "--format", "{{.Names}}")

	out, err := r.Output(ctx, args...)
	if err != nil {
		return false, err
	}

	// the name filter matches substrings
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}

	return false, nil
}

// GetContainerInfo returns the current state of the container named name,
// or nil if the engine does not know it.
func (r *DockerHelper) GetContainerInfo(ctx context.Context, name string) (*ContainerInfo, error) {
	details := []containerDetails{}
	err := r.Inspect(ctx, []string{name}, "container", &details)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	} else if len(details) == 0 {
		return nil, nil
	}

	return details[0].info(), nil
}

func (d containerDetails) info() *ContainerInfo {
	info := &ContainerInfo{
		Name:    strings.TrimPrefix(d.Name, "/"),
		Status:  d.State.Status,
		Running: d.State.Running,
		Image:   d.Config.Image,
		Created: d.Created,
	}

	for containerPort, bindings := range d.NetworkSettings.Ports {
		for _, binding := range bindings {
			host := binding.HostPort
			if binding.HostIP != "" {
				host = binding.HostIP + ":" + host
			}
			info.Ports = append(info.Ports, fmt.Sprintf("%s->%s", host, containerPort))
		}
	}
	sort.Strings(info.Ports)

	return info
}

func (r *DockerHelper) StartContainer(ctx context.Context, name string) error {
	return r.Run(ctx, []string{"start", name}, nil, nil, nil)
}

func (r *DockerHelper) Stop(ctx context.Context, name string) error {
	return r.Run(ctx, []string{"stop", name}, nil, nil, nil)
}

func (r *DockerHelper) Remove(ctx context.Context, name string) error {
	return r.Run(ctx, []string{"rm", name}, nil, nil, nil)
}

// isNotFound reports whether err is the engine saying the inspected object
// does not exist. Any other engine failure, such as an unreachable daemon,
// is not.
func isNotFound(err error) bool {
	var engineError *errdefs.EngineError
	if !errors.As(err, &engineError) {
		return false
	}

	stderr := strings.ToLower(engineError.Stderr)
	for _, marker := range []string{"no such container", "no such object", "no such image", "not known"} {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}
