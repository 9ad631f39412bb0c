package browser

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocker records container lifecycle calls and injects failures.
type fakeDocker struct {
	startErr   error
	inspectErr error
	ports      nat.PortMap

	started []string
	stopped []string
	removed []string
}

func (f *fakeDocker) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error) {
	return container.CreateResponse{ID: "cid-1"}, nil
}

func (f *fakeDocker) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, containerID)
	return nil
}

func (f *fakeDocker) ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error) {
	if f.inspectErr != nil {
		return container.InspectResponse{}, f.inspectErr
	}
	resp := container.InspectResponse{NetworkSettings: &container.NetworkSettings{}}
	resp.NetworkSettings.Ports = f.ports
	return resp, nil
}

func (f *fakeDocker) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	f.stopped = append(f.stopped, containerID)
	return nil
}

func (f *fakeDocker) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	f.removed = append(f.removed, containerID)
	return nil
}

func (f *fakeDocker) ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error) {
	return []image.Summary{{RepoTags: []string{chromeImage}}}, nil
}

func (f *fakeDocker) ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error) {
	return io.NopCloser(nil), nil
}

func (f *fakeDocker) Close() error { return nil }

func TestLaunchDiscardsContainerWhenStartFails(t *testing.T) {
	fake := &fakeDocker{startErr: errors.New("cgroup limit")}
	p := &Pool{client: fake}

	_, err := p.Launch(context.Background(), "sess-1")
	require.Error(t, err)

	assert.Equal(t, []string{"cid-1"}, fake.stopped)
	assert.Equal(t, []string{"cid-1"}, fake.removed)
}

func TestLaunchDiscardsContainerWhenInspectFails(t *testing.T) {
	fake := &fakeDocker{inspectErr: errors.New("daemon gone")}
	p := &Pool{client: fake}

	_, err := p.Launch(context.Background(), "sess-1")
	require.Error(t, err)

	assert.Equal(t, []string{"cid-1"}, fake.stopped)
	assert.Equal(t, []string{"cid-1"}, fake.removed)
}

func TestLaunchDiscardsContainerWithoutCDPPort(t *testing.T) {
	fake := &fakeDocker{ports: nat.PortMap{}}
	p := &Pool{client: fake}

	_, err := p.Launch(context.Background(), "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CDP port")

	assert.Equal(t, []string{"cid-1"}, fake.stopped)
	assert.Equal(t, []string{"cid-1"}, fake.removed)
}

func TestEnsureImagePresent(t *testing.T) {
	p := &Pool{client: &fakeDocker{}}
	assert.NoError(t, p.EnsureImage(context.Background()))
}
