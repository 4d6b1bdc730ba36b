// Located in pkg/runtime/runtime.go
package runtime

import (
	"context"
	"io"
)

// ImageAction names a log-emitting image operation on the container engine.
type ImageAction string

const (
	ActionPull ImageAction = "pull"
	ActionPush ImageAction = "push"
)

// ImageRef is the engine's view of a resolved image.
type ImageRef struct {
	ID   string
	Tags []string
}

// ContainerRef is the engine's view of a container.
type ContainerRef struct {
	ID     string
	Name   string
	Image  string
	Status string
}

// RunOptions defines the parameters for starting a container from an image.
type RunOptions struct {
	Name             string
	Command          []string
	VolumeMounts     map[string]string
	EnvVars          map[string]string
	WorkingDirectory string
	AutoRemove       bool
}

// Client defines the contract for native container engine operations.
type Client interface {
	GetImage(ctx context.Context, name string) (*ImageRef, error)
	// ImageAction starts a pull or push and returns its JSON log stream, one record per line.
	ImageAction(ctx context.Context, action ImageAction, name string) (io.ReadCloser, error)
	TagImage(ctx context.Context, source, target string) error
	ListContainers(ctx context.Context, filters map[string]string) ([]ContainerRef, error)
	GetContainer(ctx context.Context, name string) (*ContainerRef, error)
	RunContainer(ctx context.Context, image string, detach bool, opts RunOptions) (*ContainerRef, error)
	StopContainer(ctx context.Context, id string) error
	Login(ctx context.Context, username, password string) error
}

// ClientFactory creates a connected Client.
type ClientFactory func() (Client, error)

// ExecOptions controls how the command executor treats the tool's output.
type ExecOptions struct {
	// IgnoreStderr suppresses stderr output the tool emits as information.
	IgnoreStderr bool
	// ShowStdout echoes stdout while it is captured.
	ShowStdout bool
	// FlattenOutput joins the captured lines into a single string.
	FlattenOutput bool
}

// CommandExecutor runs subcommands of an external cloud CLI.
type CommandExecutor interface {
	Execute(ctx context.Context, args []string, opts ExecOptions) (string, error)
}
