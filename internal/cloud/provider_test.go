package cloud

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "cloudkit/internal/errors"
	"cloudkit/pkg/runtime"
)

func TestCapabilityTableIsTotal(t *testing.T) {
	require.NoError(t, validateCapabilities())

	for _, kind := range ProviderKinds() {
		for _, op := range Operations() {
			assert.NotEqual(t, realizationUnset, Capability(kind, op), "%s/%s has no entry", kind, op)
		}
	}
}

func TestValidateCapabilities_DetectsMissingCell(t *testing.T) {
	saved := capabilities[Local]
	defer func() { capabilities[Local] = saved }()

	row := saved
	row[OpRun] = realizationUnset
	capabilities[Local] = row

	err := validateCapabilities()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run")
	assert.Contains(t, err.Error(), "local")
}

func TestValidateCapabilities_DetectsMissingProvider(t *testing.T) {
	saved := capabilities[CLIRegistry]
	delete(capabilities, CLIRegistry)
	defer func() { capabilities[CLIRegistry] = saved }()

	assert.Error(t, validateCapabilities())
}

func TestCapability_Table(t *testing.T) {
	tests := []struct {
		op   Operation
		want [3]Realization // local, hosted-registry, cli-registry
	}{
		{OpLogin, [3]Realization{Native, NativeAuthenticated, CLI}},
		{OpExec, [3]Realization{Unsupported, Unsupported, CLI}},
		{OpListContainers, [3]Realization{Native, Native, Unsupported}},
		{OpGetContainer, [3]Realization{Native, Native, Unsupported}},
		{OpStopContainer, [3]Realization{Native, Native, Unsupported}},
		{OpGetImage, [3]Realization{Native, Native, Detached}},
		{OpListTags, [3]Realization{Native, Native, CLI}},
		{OpPull, [3]Realization{Native, Native, Unsupported}},
		{OpPush, [3]Realization{Native, Native, Unsupported}},
		{OpTag, [3]Realization{Native, Native, CLI}},
		{OpRun, [3]Realization{Native, Native, Unsupported}},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			for i, kind := range ProviderKinds() {
				assert.Equal(t, tt.want[i], Capability(kind, tt.op), "provider %s", kind)
			}
		})
	}
}

func TestCapability_UnknownInputs(t *testing.T) {
	assert.Equal(t, Unsupported, Capability(ProviderKind(42), OpPull))
	assert.Equal(t, Unsupported, Capability(Local, Operation(-1)))
	assert.Equal(t, Unsupported, Capability(Local, numOperations))
	assert.False(t, Supports(CLIRegistry, OpRun))
	assert.True(t, Supports(Local, OpRun))
}

func TestParseProviderKind(t *testing.T) {
	for _, kind := range ProviderKinds() {
		got, err := ParseProviderKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}

	_, err := ParseProviderKind("azure")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerrors.ErrInvalidType))
	assert.Contains(t, err.Error(), "[local hosted-registry cli-registry]")
}

func TestNewSession_InvalidType(t *testing.T) {
	_, err := NewSession(context.Background(), ProviderKind(99), Credentials{})

	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrInvalidType)
	assert.Contains(t, err.Error(), "must be one of: [local hosted-registry cli-registry]")
}

// Every unsupported cell fails with ErrInvalidOperation naming the provider
// and never reaches a collaborator.
func TestUnsupportedOperations_NoCollaboratorCalls(t *testing.T) {
	ctx := context.Background()

	calls := map[Operation]func(s *Session) error{
		OpExec: func(s *Session) error {
			_, err := s.Exec(ctx, runtime.ExecOptions{}, "version")
			return err
		},
		OpListContainers: func(s *Session) error {
			_, err := s.Containers(ctx, nil)
			return err
		},
		OpGetContainer: func(s *Session) error {
			_, err := s.Container(ctx, "web")
			return err
		},
		OpStopContainer: func(s *Session) error {
			c := &Container{session: s, name: "web", ref: &runtime.ContainerRef{ID: "abc"}}
			return c.Stop(ctx)
		},
		OpPull: func(s *Session) error {
			_, err := (&Image{session: s, name: "myapp"}).Pull(ctx)
			return err
		},
		OpPush: func(s *Session) error {
			_, err := (&Image{session: s, name: "myapp"}).Push(ctx)
			return err
		},
		OpRun: func(s *Session) error {
			_, err := (&Image{session: s, name: "myapp"}).Run(ctx, RunOptions{})
			return err
		},
	}

	for _, kind := range ProviderKinds() {
		for op, call := range calls {
			if Supports(kind, op) {
				continue
			}
			t.Run(kind.String()+"/"+op.String(), func(t *testing.T) {
				client := &MockClient{}
				executor := &MockExecutor{}
				s := &Session{kind: kind, client: client, executor: executor}

				err := call(s)

				require.Error(t, err)
				assert.ErrorIs(t, err, cerrors.ErrInvalidOperation)
				assert.Contains(t, err.Error(), kind.String())
				client.AssertExpectations(t)
				executor.AssertExpectations(t)
				assert.Empty(t, client.Calls)
				assert.Empty(t, executor.Calls)
			})
		}
	}
}
