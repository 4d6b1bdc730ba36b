package cloud

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cerrors "cloudkit/internal/errors"
	"cloudkit/pkg/runtime"
)

const okLog = `{"status":"Pulling from library/myapp","id":"latest"}
{"status":"Digest: sha256:abc"}

{"status":"Status: Downloaded newer image for myapp:latest"}
`

func TestSession_Image_Native(t *testing.T) {
	client := &MockClient{}
	s := newNativeSession(t, Local, client)
	client.On("GetImage", mock.Anything, "myapp").Return(&runtime.ImageRef{ID: "sha256:1", Tags: []string{"myapp:latest"}}, nil).Once()

	img, err := s.Image(context.Background(), "myapp")

	require.NoError(t, err)
	assert.Equal(t, "myapp", img.Name())
	require.NotNil(t, img.Ref())
	assert.Equal(t, "sha256:1", img.Ref().ID)
}

func TestSession_Image_CLIHasNoNativeReference(t *testing.T) {
	executor := &MockExecutor{}
	s := newCLISession(t, executor)

	img, err := s.Image(context.Background(), "gcr.io/p/myapp")

	require.NoError(t, err)
	assert.Nil(t, img.Ref())
	assert.Empty(t, executor.Calls)
}

func TestImage_GetTags_Native(t *testing.T) {
	client := &MockClient{}
	s := newNativeSession(t, HostedRegistry, client)
	client.On("GetImage", mock.Anything, "myapp").Return(&runtime.ImageRef{Tags: []string{"myapp:v2", "myapp:v1"}}, nil).Once()
	img, err := s.Image(context.Background(), "myapp")
	require.NoError(t, err)

	tags, err := img.Tags(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"myapp:v2", "myapp:v1"}, tags, "native tags are returned as-is")

	tags[0] = "mutated"
	again, _ := img.Tags(context.Background())
	assert.Equal(t, "myapp:v2", again[0], "callers must not be able to mutate the reference")
}

func TestImage_GetTags_CLI(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		args   []string
		output string
		want   []string
	}{
		{
			name:   "flattened and sorted",
			args:   []string{"container", "images", "list-tags", "gcr.io/p/myapp", "--format=json"},
			output: `[{"digest":"sha256:1","tags":["v1","v3"]},{"digest":"sha256:2","tags":["v2"]}]`,
			want:   []string{"v1", "v2", "v3"},
		},
		{
			name:   "duplicates removed",
			args:   []string{"container", "images", "list-tags", "gcr.io/p/myapp", "--format=json"},
			output: `[{"tags":["v2","latest"]},{"tags":["v1","latest"]},{"tags":["v2"]}]`,
			want:   []string{"latest", "v1", "v2"},
		},
		{
			name:   "filter passed through",
			filter: "tags:v1*",
			args:   []string{"container", "images", "list-tags", "gcr.io/p/myapp", "--format=json", "--filter=tags:v1*"},
			output: `[{"tags":["v1.1"]},{"tags":["v1.0"]}]`,
			want:   []string{"v1.0", "v1.1"},
		},
		{
			name:   "untagged records",
			args:   []string{"container", "images", "list-tags", "gcr.io/p/myapp", "--format=json"},
			output: `[{"digest":"sha256:1","tags":[]}]`,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := &MockExecutor{}
			s := newCLISession(t, executor)
			executor.On("Execute", mock.Anything, tt.args, runtime.ExecOptions{FlattenOutput: true}).Return(tt.output, nil).Once()
			img, err := s.Image(context.Background(), "gcr.io/p/myapp")
			require.NoError(t, err)

			tags, err := img.GetTags(context.Background(), tt.filter)

			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, tags)
			assert.IsIncreasing(t, tags)
			executor.AssertExpectations(t)
		})
	}
}

func TestImage_GetTags_CLIMalformedOutput(t *testing.T) {
	executor := &MockExecutor{}
	s := newCLISession(t, executor)
	executor.On("Execute", mock.Anything, mock.Anything, mock.Anything).Return("Listed 0 items.", nil).Once()
	img, _ := s.Image(context.Background(), "gcr.io/p/myapp")

	_, err := img.Tags(context.Background())

	assert.ErrorIs(t, err, cerrors.ErrCommandFailed)
}

func TestImage_Manage(t *testing.T) {
	client := &MockClient{}
	s := newNativeSession(t, Local, client)
	img := &Image{session: s, name: "myapp"}
	client.On("ImageAction", mock.Anything, runtime.ActionPull, "myapp").Return(okLog, nil).Once()

	records, err := img.Pull(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Pulling from library/myapp", records[0].Status)
	assert.Equal(t, "latest", records[0].ID)
}

func TestImage_Manage_ErrorRecords(t *testing.T) {
	client := &MockClient{}
	s := newNativeSession(t, Local, client)
	img := &Image{session: s, name: "myapp"}
	log := `{"status":"Pulling from library/myapp"}
{"error":"boom","errorDetail":{"message":"boom"}}
`
	client.On("ImageAction", mock.Anything, runtime.ActionPull, "myapp").Return(log, nil).Once()

	records, err := img.Manage(context.Background(), runtime.ActionPull)

	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrImageError)
	assert.True(t, IsImageError(err))
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "pull")
	assert.Len(t, records, 2, "the full log is returned alongside the error")

	var cloudErr *cerrors.CloudError
	require.ErrorAs(t, err, &cloudErr)
	assert.Equal(t, "pull", cloudErr.Operation)
}

func TestImage_Manage_ConcatenatesErrors(t *testing.T) {
	client := &MockClient{}
	s := newNativeSession(t, HostedRegistry, client)
	img := &Image{session: s, name: "user/myapp"}
	log := `{"error":"denied: "}
{"status":"retrying"}
{"error":"requested access to the resource is denied"}
`
	client.On("ImageAction", mock.Anything, runtime.ActionPush, "user/myapp").Return(log, nil).Once()

	_, err := img.Push(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied: requested access to the resource is denied")
	assert.Contains(t, err.Error(), "push")
}

func TestImage_Manage_MalformedLog(t *testing.T) {
	client := &MockClient{}
	s := newNativeSession(t, Local, client)
	img := &Image{session: s, name: "myapp"}
	client.On("ImageAction", mock.Anything, runtime.ActionPull, "myapp").Return("not json\n", nil).Once()

	_, err := img.Pull(context.Background())

	assert.ErrorIs(t, err, cerrors.ErrRuntimeFailed)
}

func TestImage_Manage_UnknownAction(t *testing.T) {
	client := &MockClient{}
	s := newNativeSession(t, Local, client)
	img := &Image{session: s, name: "myapp"}

	_, err := img.Manage(context.Background(), runtime.ImageAction("prune"))

	assert.ErrorIs(t, err, cerrors.ErrInvalidOperation)
	client.AssertNotCalled(t, "ImageAction", mock.Anything, mock.Anything, mock.Anything)
}

func TestImage_Manage_ActionFailure(t *testing.T) {
	client := &MockClient{}
	s := newNativeSession(t, Local, client)
	img := &Image{session: s, name: "myapp"}
	client.On("ImageAction", mock.Anything, runtime.ActionPull, "myapp").Return(nil, errors.New("dial unix /var/run/docker.sock")).Once()

	_, err := img.Pull(context.Background())

	assert.ErrorIs(t, err, cerrors.ErrRuntimeFailed)
}

func TestImage_Tag_Native(t *testing.T) {
	for _, kind := range []ProviderKind{Local, HostedRegistry} {
		t.Run(kind.String(), func(t *testing.T) {
			client := &MockClient{}
			s := newNativeSession(t, kind, client)
			client.On("GetImage", mock.Anything, "myapp:v1").Return(&runtime.ImageRef{ID: "sha256:1", Tags: []string{"myapp:v1"}}, nil).Once()
			client.On("ImageAction", mock.Anything, runtime.ActionPull, "myapp:v1").Return(okLog, nil).Once()
			client.On("TagImage", mock.Anything, "myapp:v1", "myapp:v2").Return(nil).Once()
			client.On("GetImage", mock.Anything, "myapp:v2").Return(&runtime.ImageRef{ID: "sha256:1", Tags: []string{"myapp:v1", "myapp:v2"}}, nil).Once()
			client.On("ImageAction", mock.Anything, runtime.ActionPush, "myapp:v2").Return(`{"status":"Pushed"}`, nil).Once()

			img, err := s.Image(context.Background(), "myapp:v1")
			require.NoError(t, err)

			tagged, err := img.Tag(context.Background(), "myapp:v2")

			require.NoError(t, err)
			assert.Equal(t, "myapp:v2", tagged.Name())
			assert.Equal(t, "myapp:v1", img.Name(), "the original handle keeps its name")
			assert.NotSame(t, img, tagged)
			client.AssertExpectations(t)
		})
	}
}

func TestImage_Tag_NativePullFailureStops(t *testing.T) {
	client := &MockClient{}
	s := newNativeSession(t, Local, client)
	img := &Image{session: s, name: "myapp:v1"}
	client.On("ImageAction", mock.Anything, runtime.ActionPull, "myapp:v1").Return(`{"error":"manifest unknown"}`, nil).Once()

	_, err := img.Tag(context.Background(), "myapp:v2")

	assert.ErrorIs(t, err, cerrors.ErrImageError)
	client.AssertNotCalled(t, "TagImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestImage_Tag_CLI(t *testing.T) {
	executor := &MockExecutor{}
	s := newCLISession(t, executor)
	executor.On("Execute", mock.Anything, []string{"container", "images", "add-tag", "gcr.io/p/myapp:v1", "myapp:v2"},
		runtime.ExecOptions{IgnoreStderr: true}).Return("", nil).Once()
	img, err := s.Image(context.Background(), "gcr.io/p/myapp:v1")
	require.NoError(t, err)

	tagged, err := img.Tag(context.Background(), "myapp:v2")

	require.NoError(t, err)
	assert.Equal(t, "myapp:v2", tagged.Name())
	assert.Equal(t, "gcr.io/p/myapp:v1", img.Name())
	assert.Nil(t, tagged.Ref())
	executor.AssertExpectations(t)
	executor.AssertNumberOfCalls(t, "Execute", 1)
}

func TestImage_Run(t *testing.T) {
	client := &MockClient{}
	s := newNativeSession(t, Local, client)
	img := &Image{session: s, name: "myapp"}
	opts := runtime.RunOptions{Name: "web", EnvVars: map[string]string{"PORT": "8080"}}
	client.On("ImageAction", mock.Anything, runtime.ActionPull, "myapp").Return(okLog, nil).Once()
	client.On("RunContainer", mock.Anything, "myapp", true, opts).Return(&runtime.ContainerRef{ID: "c1", Name: "web", Image: "myapp"}, nil).Once()

	c, err := img.Run(context.Background(), RunOptions{Container: opts})

	require.NoError(t, err)
	assert.Equal(t, "web", c.Name())
	assert.True(t, c.BelongsTo(img))
	client.AssertExpectations(t)
}

func TestImage_Run_AttachedWithoutUpdate(t *testing.T) {
	client := &MockClient{}
	s := newNativeSession(t, HostedRegistry, client)
	img := &Image{session: s, name: "myapp"}
	client.On("RunContainer", mock.Anything, "myapp", false, runtime.RunOptions{}).Return(&runtime.ContainerRef{ID: "c1", Name: "job"}, nil).Once()

	_, err := img.Run(context.Background(), RunOptions{Attach: true, NoUpdate: true})

	require.NoError(t, err)
	client.AssertNotCalled(t, "ImageAction", mock.Anything, mock.Anything, mock.Anything)
}

func TestImage_Run_CLIUnsupportedBeforePull(t *testing.T) {
	executor := &MockExecutor{}
	s := newCLISession(t, executor)
	img, _ := s.Image(context.Background(), "gcr.io/p/myapp")

	_, err := img.Run(context.Background(), RunOptions{})

	assert.ErrorIs(t, err, cerrors.ErrInvalidOperation)
	assert.Contains(t, err.Error(), "cli-registry")
	assert.Empty(t, executor.Calls)
}

func TestImage_Containers(t *testing.T) {
	client := &MockClient{}
	s := newNativeSession(t, Local, client)
	img := &Image{session: s, name: "myapp"}
	client.On("ListContainers", mock.Anything, map[string]string{"ancestor": "myapp"}).
		Return([]runtime.ContainerRef{{ID: "c1", Name: "web", Image: "myapp"}}, nil).Twice()

	first, err := img.Containers(context.Background())
	require.NoError(t, err)
	second, err := img.Containers(context.Background())
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	client.AssertNumberOfCalls(t, "ListContainers", 2)
}

func TestImage_Containers_CLIRegistry(t *testing.T) {
	executor := &MockExecutor{}
	s := newCLISession(t, executor)
	img, err := s.Image(context.Background(), "local-session")
	require.NoError(t, err)

	_, err = img.Containers(context.Background())

	assert.ErrorIs(t, err, cerrors.ErrInvalidOperation)
	assert.Contains(t, err.Error(), "cli-registry")
}
