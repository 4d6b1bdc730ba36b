package cloud

import (
	"context"
	"log/slog"

	"cloudkit/pkg/runtime"
)

// Container is a running or stopped container of a native provider.
type Container struct {
	session *Session
	name    string
	ref     *runtime.ContainerRef
}

func (c *Container) Name() string { return c.name }

func (c *Container) ID() string { return c.ref.ID }

// Image returns the image the container was created from.
func (c *Container) Image() string { return c.ref.Image }

func (c *Container) Status() string { return c.ref.Status }

// Stop stops the container.
func (c *Container) Stop(ctx context.Context) error {
	if _, err := dispatch(c.session.kind, OpStopContainer); err != nil {
		return err
	}
	client, err := c.session.nativeClient()
	if err != nil {
		return err
	}

	slog.Info("Stopping container", "container", c.name, "id", c.ref.ID)
	if err := client.StopContainer(ctx, c.ref.ID); err != nil {
		return runtimeFailure("Failed to stop container "+c.name, err)
	}
	return nil
}

// BelongsTo reports whether the container was created from image.
func (c *Container) BelongsTo(image *Image) bool {
	return c.ref.Image == image.Name()
}
