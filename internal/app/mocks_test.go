package app

import (
	"context"
	"io"
	"strings"

	"github.com/stretchr/testify/mock"

	"cloudkit/pkg/runtime"
)

// MockClient is a mock implementation of runtime.Client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetImage(ctx context.Context, name string) (*runtime.ImageRef, error) {
	args := m.Called(ctx, name)
	ref, _ := args.Get(0).(*runtime.ImageRef)
	return ref, args.Error(1)
}

func (m *MockClient) ImageAction(ctx context.Context, action runtime.ImageAction, name string) (io.ReadCloser, error) {
	args := m.Called(ctx, action, name)
	if log, ok := args.Get(0).(string); ok {
		return io.NopCloser(strings.NewReader(log)), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) TagImage(ctx context.Context, source, target string) error {
	return m.Called(ctx, source, target).Error(0)
}

func (m *MockClient) ListContainers(ctx context.Context, filters map[string]string) ([]runtime.ContainerRef, error) {
	args := m.Called(ctx, filters)
	refs, _ := args.Get(0).([]runtime.ContainerRef)
	return refs, args.Error(1)
}

func (m *MockClient) GetContainer(ctx context.Context, name string) (*runtime.ContainerRef, error) {
	args := m.Called(ctx, name)
	ref, _ := args.Get(0).(*runtime.ContainerRef)
	return ref, args.Error(1)
}

func (m *MockClient) RunContainer(ctx context.Context, image string, detach bool, opts runtime.RunOptions) (*runtime.ContainerRef, error) {
	args := m.Called(ctx, image, detach, opts)
	ref, _ := args.Get(0).(*runtime.ContainerRef)
	return ref, args.Error(1)
}

func (m *MockClient) StopContainer(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockClient) Login(ctx context.Context, username, password string) error {
	return m.Called(ctx, username, password).Error(0)
}

// MockExecutor is a mock implementation of runtime.CommandExecutor
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, args []string, opts runtime.ExecOptions) (string, error) {
	called := m.Called(ctx, args, opts)
	return called.String(0), called.Error(1)
}

func clientFactory(client runtime.Client) runtime.ClientFactory {
	return func() (runtime.Client, error) { return client, nil }
}
