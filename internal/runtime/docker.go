package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/google/go-containerregistry/pkg/name"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"cloudkit/pkg/runtime"
)

// dockerHubServer is the server address Docker Hub logins are recorded under.
const dockerHubServer = "https://index.docker.io/v1/"

// engineAPI is the subset of the Docker SDK client used by DockerClient.
type engineAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (image.InspectResponse, []byte, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ImagePush(ctx context.Context, ref string, options image.PushOptions) (io.ReadCloser, error)
	ImageTag(ctx context.Context, source, target string) error
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	RegistryLogin(ctx context.Context, auth registry.AuthConfig) (registry.AuthenticateOKBody, error)
}

// DockerClient implements runtime.Client on the Docker Engine API.
type DockerClient struct {
	api  engineAPI
	auth *registry.AuthConfig
}

var _ runtime.Client = (*DockerClient)(nil)

// NewDockerClient creates a DockerClient using client.FromEnv and checks the daemon answers.
func NewDockerClient() (*DockerClient, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	if _, err := dockerClient.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to Docker daemon: %w", err)
	}

	return &DockerClient{api: dockerClient}, nil
}

// NewClient adapts NewDockerClient to runtime.ClientFactory.
func NewClient() (runtime.Client, error) {
	return NewDockerClient()
}

// GetImage inspects a local image.
func (d *DockerClient) GetImage(ctx context.Context, imageName string) (*runtime.ImageRef, error) {
	info, _, err := d.api.ImageInspectWithRaw(ctx, imageName)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect image %s: %w", imageName, err)
	}
	return &runtime.ImageRef{ID: info.ID, Tags: info.RepoTags}, nil
}

// ImageAction starts a pull or push and returns the engine's JSON progress stream.
func (d *DockerClient) ImageAction(ctx context.Context, action runtime.ImageAction, imageName string) (io.ReadCloser, error) {
	encodedAuth, err := d.registryAuthFor(imageName)
	if err != nil {
		return nil, err
	}

	slog.Info("Starting image action", "action", action, "image", imageName, "authenticated", encodedAuth != "")

	switch action {
	case runtime.ActionPull:
		reader, err := d.api.ImagePull(ctx, imageName, image.PullOptions{RegistryAuth: encodedAuth})
		if err != nil {
			return nil, fmt.Errorf("failed to pull image %s: %w", imageName, err)
		}
		return reader, nil
	case runtime.ActionPush:
		reader, err := d.api.ImagePush(ctx, imageName, image.PushOptions{RegistryAuth: encodedAuth})
		if err != nil {
			return nil, fmt.Errorf("failed to push image %s: %w", imageName, err)
		}
		return reader, nil
	default:
		return nil, fmt.Errorf("unsupported image action %q", action)
	}
}

// TagImage applies target to the local image source.
func (d *DockerClient) TagImage(ctx context.Context, source, target string) error {
	slog.Info("Tagging image", "source", source, "target", target)
	if err := d.api.ImageTag(ctx, source, target); err != nil {
		return fmt.Errorf("failed to tag image %s as %s: %w", source, target, err)
	}
	return nil
}

// ListContainers lists all containers, running or not, matching filters.
func (d *DockerClient) ListContainers(ctx context.Context, filterMap map[string]string) ([]runtime.ContainerRef, error) {
	list, err := d.api.ContainerList(ctx, container.ListOptions{All: true, Filters: toFilterArgs(filterMap)})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	refs := make([]runtime.ContainerRef, 0, len(list))
	for _, c := range list {
		refs = append(refs, runtime.ContainerRef{
			ID:     c.ID,
			Name:   containerName(c.Names),
			Image:  c.Image,
			Status: string(c.State),
		})
	}
	return refs, nil
}

// GetContainer inspects a container by name or ID.
func (d *DockerClient) GetContainer(ctx context.Context, nameOrID string) (*runtime.ContainerRef, error) {
	info, err := d.api.ContainerInspect(ctx, nameOrID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container %s: %w", nameOrID, err)
	}

	ref := &runtime.ContainerRef{ID: info.ID, Name: strings.TrimPrefix(info.Name, "/")}
	if info.Config != nil {
		ref.Image = info.Config.Image
	}
	if info.State != nil {
		ref.Status = string(info.State.Status)
	}
	return ref, nil
}

// RunContainer creates and starts a container. When detach is false it waits
// for the container to exit.
func (d *DockerClient) RunContainer(ctx context.Context, imageName string, detach bool, opts runtime.RunOptions) (*runtime.ContainerRef, error) {
	slog.Info("Running container", "image", imageName, "name", opts.Name, "detach", detach)

	var mounts []mount.Mount
	for hostPath, containerPath := range opts.VolumeMounts {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: hostPath,
			Target: containerPath,
		})
	}

	containerConfig := &container.Config{
		Image:      imageName,
		Cmd:        opts.Command,
		Env:        envList(opts.EnvVars),
		WorkingDir: opts.WorkingDirectory,
	}
	hostConfig := &container.HostConfig{
		Mounts:     mounts,
		AutoRemove: opts.AutoRemove,
	}

	resp, err := d.api.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, opts.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := d.api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	ref := &runtime.ContainerRef{ID: resp.ID, Name: opts.Name, Image: imageName, Status: "running"}
	if ref.Name == "" {
		ref.Name = resp.ID
	}
	if detach {
		return ref, nil
	}

	statusCh, errCh := d.api.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("failed waiting for container %s: %w", resp.ID, err)
	case status := <-statusCh:
		if status.Error != nil {
			return nil, fmt.Errorf("container %s failed: %s", resp.ID, status.Error.Message)
		}
		ref.Status = fmt.Sprintf("exited (%d)", status.StatusCode)
	}
	return ref, nil
}

// StopContainer stops a container using the engine's default timeout.
func (d *DockerClient) StopContainer(ctx context.Context, id string) error {
	slog.Info("Stopping container", "containerID", id)
	if err := d.api.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", id, err)
	}
	return nil
}

// Login authenticates against Docker Hub and keeps the credentials for pushes and pulls.
func (d *DockerClient) Login(ctx context.Context, username, password string) error {
	auth := registry.AuthConfig{
		Username:      username,
		Password:      password,
		ServerAddress: dockerHubServer,
	}
	resp, err := d.api.RegistryLogin(ctx, auth)
	if err != nil {
		return fmt.Errorf("failed to log in as %s: %w", username, err)
	}
	if resp.IdentityToken != "" {
		auth.Password = ""
		auth.IdentityToken = resp.IdentityToken
	}
	d.auth = &auth

	slog.Info("Logged in to registry", "username", username, "status", resp.Status)
	return nil
}

// registryAuthFor returns the encoded credentials when imageName lives on the
// registry Login authenticated against, and "" otherwise.
func (d *DockerClient) registryAuthFor(imageName string) (string, error) {
	if d.auth == nil {
		return "", nil
	}
	host, err := registryHost(imageName)
	if err != nil {
		return "", err
	}
	if host != name.DefaultRegistry {
		return "", nil
	}
	encoded, err := registry.EncodeAuthConfig(*d.auth)
	if err != nil {
		return "", fmt.Errorf("failed to encode registry credentials: %w", err)
	}
	return encoded, nil
}

// registryHost parses an image reference and returns its registry host.
func registryHost(imageName string) (string, error) {
	ref, err := name.ParseReference(imageName, name.WithDefaultTag("latest"))
	if err != nil {
		return "", fmt.Errorf("invalid image reference %q: %w", imageName, err)
	}
	return ref.Context().RegistryStr(), nil
}

func toFilterArgs(filterMap map[string]string) filters.Args {
	args := filters.NewArgs()
	for key, value := range filterMap {
		args.Add(key, value)
	}
	return args
}

// envList converts env vars to KEY=VALUE form in key order.
func envList(vars map[string]string) []string {
	if len(vars) == 0 {
		return nil
	}
	env := make([]string, 0, len(vars))
	for key, value := range vars {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(env)
	return env
}

func containerName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.TrimPrefix(names[0], "/")
}
