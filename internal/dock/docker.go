package dock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/drydock-platform/drydock/internal/utils"
	"github.com/moby/go-archive"
	"github.com/rs/zerolog"
)

const (
	// BuilderImage runs the image build inside a container on the dock.
	BuilderImage = "drydock/image-builder:latest"
	// contextPath is where the build context lands inside the builder.
	contextPath = "/drydock-context"
)

// Container labels used to recognize our containers on a dock.
const (
	LabelManaged        = "drydock.managed"
	LabelRole           = "drydock.role"
	LabelBuildID        = "drydock.build"
	LabelContextVersion = "drydock.context-version"
	LabelInstance       = "drydock.instance"
	LabelOwner          = "drydock.owner"
)

// DockerPool caches one docker client per dock host.
type DockerPool struct {
	mu      sync.Mutex
	clients map[string]*dockerClient
	log     zerolog.Logger
}

func NewDockerPool(log zerolog.Logger) *DockerPool {
	return &DockerPool{clients: make(map[string]*dockerClient), log: log}
}

func (p *DockerPool) For(host string) (Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[host]; ok {
		return c, nil
	}
	cli, err := client.NewClientWithOpts(client.WithHost(host), client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client for %s: %w", host, err)
	}
	c := &dockerClient{host: host, cli: cli, log: p.log.With().Str("dock", host).Logger()}
	p.clients[host] = c
	return c, nil
}

type dockerClient struct {
	host string
	cli  *client.Client
	log  zerolog.Logger
}

func (d *dockerClient) CreateBuildContainer(ctx context.Context, spec BuildContainerSpec) (ContainerRef, error) {
	buildContext, err := tarManifest(spec)
	if err != nil {
		return ContainerRef{}, &Error{Kind: KindClient, Op: "pack build context", Cause: err}
	}
	defer buildContext.Close()

	env := []string{
		"DRYDOCK_IMAGE_TAG=" + spec.Tag,
		fmt.Sprintf("DRYDOCK_NO_CACHE=%t", spec.NoCache),
	}
	name := fmt.Sprintf("image-builder-%s-%s", utils.SanitizeName(spec.OwnerUsername), shortID(spec.BuildID))
	resp, err := d.cli.ContainerCreate(ctx,
		&container.Config{
			Image: BuilderImage,
			Env:   env,
			Labels: map[string]string{
				LabelManaged:        "true",
				LabelRole:           "image-builder",
				LabelBuildID:        spec.BuildID,
				LabelContextVersion: spec.ContextVersionID,
				LabelOwner:          spec.OwnerUsername,
			},
		},
		&container.HostConfig{}, nil, nil, name)
	if err != nil {
		return ContainerRef{}, d.classify("create build container", err)
	}

	if err := d.cli.CopyToContainer(ctx, resp.ID, contextPath, buildContext, container.CopyToContainerOptions{}); err != nil {
		return ContainerRef{}, d.classify("copy build context", err)
	}

	d.log.Info().Str("container", resp.ID).Str("build", spec.BuildID).Msg("created image-builder container")
	return ContainerRef{ID: resp.ID, Host: d.host}, nil
}

func (d *dockerClient) CreateRunContainer(ctx context.Context, spec RunContainerSpec) (ContainerRef, error) {
	resp, err := d.cli.ContainerCreate(ctx,
		&container.Config{
			Image: spec.Image,
			Env:   spec.Env,
			Labels: map[string]string{
				LabelManaged:        "true",
				LabelRole:           "instance",
				LabelInstance:       spec.InstanceID,
				LabelContextVersion: spec.ContextVersionID,
				LabelOwner:          spec.OwnerUsername,
			},
		},
		&container.HostConfig{
			RestartPolicy: container.RestartPolicy{
				Name: container.RestartPolicyUnlessStopped,
			},
		}, nil, nil, utils.SanitizeName(spec.Name))
	if err != nil {
		return ContainerRef{}, d.classify("create run container", err)
	}
	d.log.Info().Str("container", resp.ID).Str("instance", spec.InstanceID).Msg("created instance container")
	return ContainerRef{ID: resp.ID, Host: d.host}, nil
}

func (d *dockerClient) StartContainer(ctx context.Context, containerID string) error {
	if err := d.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return d.classify("start container", err)
	}
	return nil
}

func (d *dockerClient) StopContainer(ctx context.Context, containerID string) error {
	if err := d.cli.ContainerStop(ctx, containerID, container.StopOptions{}); err != nil {
		return d.classify("stop container", err)
	}
	return nil
}

func (d *dockerClient) RemoveContainer(ctx context.Context, containerID string) error {
	if err := d.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		return d.classify("remove container", err)
	}
	return nil
}

func (d *dockerClient) AttachNetwork(ctx context.Context, containerID, networkName string) error {
	if err := d.ensureNetwork(ctx, networkName); err != nil {
		return err
	}
	if err := d.cli.NetworkConnect(ctx, networkName, containerID, &network.EndpointSettings{}); err != nil {
		// Re-attaching on redelivery reports a conflict; that is success.
		if cerrdefs.IsConflict(err) || strings.Contains(err.Error(), "already exists in network") {
			return nil
		}
		return d.classify("attach network", err)
	}
	return nil
}

func (d *dockerClient) ensureNetwork(ctx context.Context, name string) error {
	_, err := d.cli.NetworkInspect(ctx, name, network.InspectOptions{})
	if err == nil {
		return nil
	}
	if !cerrdefs.IsNotFound(err) {
		return d.classify("inspect network", err)
	}
	if _, err := d.cli.NetworkCreate(ctx, name, network.CreateOptions{
		Labels: map[string]string{LabelManaged: "true"},
	}); err != nil && !cerrdefs.IsConflict(err) {
		return d.classify("create network", err)
	}
	return nil
}

func (d *dockerClient) InspectContainer(ctx context.Context, containerID string) (Inspect, error) {
	resp, err := d.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return Inspect{}, d.classify("inspect container", err)
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return Inspect{}, &Error{Kind: KindServer, Op: "encode inspect", Cause: err}
	}
	out := Inspect{Raw: raw}
	if resp.State != nil {
		out.State = resp.State.Status
		out.Running = resp.State.Running
	}
	if resp.NetworkSettings != nil {
		for port, bindings := range resp.NetworkSettings.Ports {
			for _, b := range bindings {
				out.Ports = append(out.Ports, fmt.Sprintf("%s->%s:%s", port, b.HostIP, b.HostPort))
			}
		}
	}
	return out, nil
}

// classify maps daemon errors onto the taxonomy workers act on. Unknown
// failures count as server-side so the bus retries them.
func (d *dockerClient) classify(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case cerrdefs.IsNotFound(err):
		if strings.Contains(msg, "no such image") || strings.Contains(msg, "image not found") {
			return &Error{Kind: KindImageNotFound, Op: op, Cause: err}
		}
		return &Error{Kind: KindNotFound, Op: op, Cause: err}
	case cerrdefs.IsInvalidArgument(err),
		cerrdefs.IsPermissionDenied(err),
		cerrdefs.IsUnauthorized(err),
		cerrdefs.IsConflict(err):
		return &Error{Kind: KindClient, Op: op, Cause: err}
	default:
		return &Error{Kind: KindServer, Op: op, Cause: err}
	}
}

// tarManifest materializes the build context and tars it the same way the
// daemon expects a context upload. Manifest paths come from user input and
// must stay inside the context directory.
func tarManifest(spec BuildContainerSpec) (io.ReadCloser, error) {
	dir, err := os.MkdirTemp("", fmt.Sprintf("build-context-%s-*", shortID(spec.BuildID)))
	if err != nil {
		return nil, err
	}
	for _, f := range spec.Manifest {
		if !filepath.IsLocal(f.Path) {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("manifest path %q escapes the build context", f.Path)
		}
		path := filepath.Join(dir, f.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
		if err := os.WriteFile(path, []byte(f.Body), 0o644); err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
	}
	tr, err := archive.TarWithOptions(dir, &archive.TarOptions{})
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &cleanupReader{ReadCloser: tr, dir: dir}, nil
}

type cleanupReader struct {
	io.ReadCloser
	dir string
}

func (c *cleanupReader) Close() error {
	err := c.ReadCloser.Close()
	os.RemoveAll(c.dir)
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
