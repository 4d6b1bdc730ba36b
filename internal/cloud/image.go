package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	cerrors "cloudkit/internal/errors"
	"cloudkit/pkg/runtime"
)

// Image is one named image within a Session's provider scope. The name never
// changes; Tag returns a new Image.
type Image struct {
	session *Session
	name    string
	ref     *runtime.ImageRef
}

func (i *Image) Name() string { return i.name }

// Ref returns the native reference resolved at construction, or nil for cli-registry.
func (i *Image) Ref() *runtime.ImageRef { return i.ref }

// Tags is GetTags without a filter.
func (i *Image) Tags(ctx context.Context) ([]string, error) {
	return i.GetTags(ctx, "")
}

// GetTags lists the tags applied to the image. Native providers return the
// resolved reference's tags unchanged. cli-registry asks the registry and
// returns the union of all records' tags, sorted and de-duplicated.
func (i *Image) GetTags(ctx context.Context, filter string) ([]string, error) {
	r, err := dispatch(i.session.kind, OpListTags)
	if err != nil {
		return nil, err
	}

	if r == Native {
		if i.ref == nil {
			return nil, nil
		}
		return slices.Clone(i.ref.Tags), nil
	}

	args := []string{"container", "images", "list-tags", i.name, "--format=json"}
	if filter != "" {
		args = append(args, "--filter="+filter)
	}
	out, err := i.session.execute(ctx, runtime.ExecOptions{FlattenOutput: true}, args...)
	if err != nil {
		return nil, err
	}
	return flattenTagRecords(out)
}

type tagRecord struct {
	Tags []string `json:"tags"`
}

func flattenTagRecords(out string) ([]string, error) {
	var records []tagRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		return nil, cerrors.NewCommandError("Failed to read tag list", err.Error(),
			"Check the cloud CLI version supports --format=json", fmt.Errorf("failed to parse list-tags output: %w", err))
	}

	var tags []string
	for _, rec := range records {
		tags = append(tags, rec.Tags...)
	}
	slices.Sort(tags)
	return slices.Compact(tags), nil
}

// Manage runs a log-emitting image action and returns its parsed log. The whole
// log is read before any error record is reported.
func (i *Image) Manage(ctx context.Context, action runtime.ImageAction) ([]LogRecord, error) {
	op, ok := actionOperations[action]
	if !ok {
		return nil, cerrors.NewInvalidOperationError(string(action), i.session.kind.String())
	}
	if _, err := dispatch(i.session.kind, op); err != nil {
		return nil, err
	}
	client, err := i.session.nativeClient()
	if err != nil {
		return nil, err
	}

	slog.Info("Managing image", "action", action, "image", i.name, "provider", i.session.kind.String())

	stream, err := client.ImageAction(ctx, action, i.name)
	if err != nil {
		return nil, runtimeFailure(fmt.Sprintf("Failed to %s image %s", action, i.name), err)
	}
	defer stream.Close()

	records, err := ParseLog(stream)
	if err != nil {
		return nil, runtimeFailure(fmt.Sprintf("Failed to read %s log for %s", action, i.name), err)
	}
	if msg := CollectErrors(records); msg != "" {
		return records, cerrors.NewImageError(string(action), i.name, msg)
	}
	return records, nil
}

var actionOperations = map[runtime.ImageAction]Operation{
	runtime.ActionPull: OpPull,
	runtime.ActionPush: OpPush,
}

func (i *Image) Pull(ctx context.Context) ([]LogRecord, error) {
	return i.Manage(ctx, runtime.ActionPull)
}

func (i *Image) Push(ctx context.Context) ([]LogRecord, error) {
	return i.Manage(ctx, runtime.ActionPush)
}

// Tag applies newName to this image and returns a handle for it. Native
// providers pull this image, tag it locally and push the new name; cli-registry
// tags server-side.
func (i *Image) Tag(ctx context.Context, newName string) (*Image, error) {
	r, err := dispatch(i.session.kind, OpTag)
	if err != nil {
		return nil, err
	}

	slog.Info("Tagging image", "image", i.name, "newName", newName, "provider", i.session.kind.String())

	switch r {
	case Native:
		if _, err := i.Pull(ctx); err != nil {
			return nil, err
		}
		client, err := i.session.nativeClient()
		if err != nil {
			return nil, err
		}
		if err := client.TagImage(ctx, i.name, newName); err != nil {
			return nil, runtimeFailure(fmt.Sprintf("Failed to tag %s as %s", i.name, newName), err)
		}
		tagged, err := i.session.Image(ctx, newName)
		if err != nil {
			return nil, err
		}
		if _, err := tagged.Push(ctx); err != nil {
			return nil, err
		}
		return tagged, nil
	case CLI:
		if _, err := i.session.execute(ctx, runtime.ExecOptions{IgnoreStderr: true},
			"container", "images", "add-tag", i.name, newName); err != nil {
			return nil, err
		}
		return i.session.Image(ctx, newName)
	default:
		return nil, cerrors.NewInvalidOperationError(OpTag.String(), i.session.kind.String())
	}
}

// RunOptions controls Image.Run. The zero value detaches and pulls first.
type RunOptions struct {
	// Attach waits for the container to exit instead of detaching.
	Attach bool
	// NoUpdate skips the pull before starting the container.
	NoUpdate  bool
	Container runtime.RunOptions
}

// Run starts a container from this image.
func (i *Image) Run(ctx context.Context, opts RunOptions) (*Container, error) {
	if _, err := dispatch(i.session.kind, OpRun); err != nil {
		return nil, err
	}
	client, err := i.session.nativeClient()
	if err != nil {
		return nil, err
	}

	if !opts.NoUpdate {
		if _, err := i.Pull(ctx); err != nil {
			return nil, err
		}
	}

	ref, err := client.RunContainer(ctx, i.name, !opts.Attach, opts.Container)
	if err != nil {
		return nil, runtimeFailure("Failed to run image "+i.name, err)
	}
	return &Container{session: i.session, name: ref.Name, ref: ref}, nil
}

// Containers lists the containers whose ancestor image is this image.
func (i *Image) Containers(ctx context.Context) ([]*Container, error) {
	return i.session.Containers(ctx, map[string]string{"ancestor": i.name})
}

// IsImageError reports whether err carries error records from an image action.
func IsImageError(err error) bool {
	return errors.Is(err, cerrors.ErrImageError)
}
