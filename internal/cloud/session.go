package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	cerrors "cloudkit/internal/errors"
	"cloudkit/pkg/runtime"
)

// Credentials is the opaque authentication material of a Session.
// hosted-registry uses Username/Password; cli-registry uses KeyID.
type Credentials struct {
	Username string
	Password string
	KeyID    string
}

// UserPassword returns credentials for a registry login.
func UserPassword(username, password string) Credentials {
	return Credentials{Username: username, Password: password}
}

// ServiceAccountKey returns credentials naming a service-account key file.
func ServiceAccountKey(keyID string) Credentials {
	return Credentials{KeyID: keyID}
}

// Option configures a Session.
type Option func(*Session)

// WithClientFactory sets how the native Runtime Client is created at login.
func WithClientFactory(factory runtime.ClientFactory) Option {
	return func(s *Session) { s.newClient = factory }
}

// WithExecutor sets the Command Executor used by cli-registry sessions.
func WithExecutor(executor runtime.CommandExecutor) Option {
	return func(s *Session) { s.executor = executor }
}

// WithCredentialDir overrides the per-user directory holding service-account key files.
func WithCredentialDir(dir string) Option {
	return func(s *Session) { s.credentialDir = dir }
}

// WithDeferredLogin skips the login performed by NewSession.
func WithDeferredLogin() Option {
	return func(s *Session) { s.deferLogin = true }
}

// Session holds the authentication state and client handle of one provider.
// A Session is meant for sequential use; Image and Container handles share
// its client and must not outlive it.
type Session struct {
	kind          ProviderKind
	auth          Credentials
	client        runtime.Client
	newClient     runtime.ClientFactory
	executor      runtime.CommandExecutor
	credentialDir string
	deferLogin    bool
	loggedIn      bool
}

// NewSession validates kind and, unless WithDeferredLogin is given, logs in.
func NewSession(ctx context.Context, kind ProviderKind, auth Credentials, opts ...Option) (*Session, error) {
	if !kind.Valid() {
		return nil, cerrors.NewInvalidTypeError(kind.String(), ProviderKindNames())
	}

	s := &Session{kind: kind, auth: auth}
	for _, opt := range opts {
		opt(s)
	}
	s.credentialDir = resolveCredentialDir(s.credentialDir)

	if !s.deferLogin {
		if err := s.Login(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Session) Kind() ProviderKind { return s.kind }

func (s *Session) LoggedIn() bool { return s.loggedIn }

// Close ends a scoped use of the Session. There is nothing to release.
func (s *Session) Close() error { return nil }

// resolveCredentialDir defaults dir to ~/.ssh and expands a leading "~", which
// the CLI would otherwise receive literally.
func resolveCredentialDir(dir string) string {
	if dir == "" {
		dir = "~/.ssh"
	}
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	return filepath.Join(home, strings.TrimPrefix(dir, "~"))
}

// KeyFile returns the service-account key file activated for cli-registry logins.
func (s *Session) KeyFile() string {
	return filepath.Join(s.credentialDir, s.auth.KeyID+".json")
}

// Login authenticates against the provider.
func (s *Session) Login(ctx context.Context) error {
	r, err := dispatch(s.kind, OpLogin)
	if err != nil {
		return err
	}

	slog.Info("Logging in to provider", "provider", s.kind.String())

	switch r {
	case Native, NativeAuthenticated:
		if s.newClient == nil {
			return cerrors.NewConfigError("Cannot log in to "+s.kind.String(),
				"no runtime client factory configured", "Construct the session with WithClientFactory",
				errors.New("no runtime client factory configured"))
		}
		client, err := s.newClient()
		if err != nil {
			return runtimeFailure("Failed to create runtime client", err)
		}
		if r == NativeAuthenticated {
			if err := client.Login(ctx, s.auth.Username, s.auth.Password); err != nil {
				return runtimeFailure(fmt.Sprintf("Failed to log in to %s as %s", s.kind, s.auth.Username), err)
			}
		}
		s.client = client
	case CLI:
		quiet := runtime.ExecOptions{IgnoreStderr: true}
		if _, err := s.execute(ctx, quiet, "auth", "activate-service-account", "--key-file", s.KeyFile()); err != nil {
			return err
		}
		if _, err := s.execute(ctx, quiet, "auth", "configure-docker"); err != nil {
			return err
		}
	}

	s.loggedIn = true
	slog.Info("Logged in to provider", "provider", s.kind.String())
	return nil
}

// Exec passes args through to the cloud CLI and returns its output.
func (s *Session) Exec(ctx context.Context, opts runtime.ExecOptions, args ...string) (string, error) {
	if _, err := dispatch(s.kind, OpExec); err != nil {
		return "", err
	}
	return s.execute(ctx, opts, args...)
}

func (s *Session) execute(ctx context.Context, opts runtime.ExecOptions, args ...string) (string, error) {
	if s.executor == nil {
		return "", cerrors.NewConfigError("Cannot run cloud CLI command",
			"no command executor configured", "Construct the session with WithExecutor",
			errors.New("no command executor configured"))
	}
	out, err := s.executor.Execute(ctx, args, opts)
	if err != nil {
		return "", fmt.Errorf("cloud CLI %v: %w", args, err)
	}
	return out, nil
}

// Image resolves name within this provider's scope.
func (s *Session) Image(ctx context.Context, name string) (*Image, error) {
	r, err := dispatch(s.kind, OpGetImage)
	if err != nil {
		return nil, err
	}

	img := &Image{session: s, name: name}
	if r == Detached {
		return img, nil
	}

	client, err := s.nativeClient()
	if err != nil {
		return nil, err
	}
	ref, err := client.GetImage(ctx, name)
	if err != nil {
		return nil, runtimeFailure("Failed to get image "+name, err)
	}
	img.ref = ref
	return img, nil
}

// Containers lists containers matching filters, e.g. {"ancestor": "myapp"}.
func (s *Session) Containers(ctx context.Context, filters map[string]string) ([]*Container, error) {
	if _, err := dispatch(s.kind, OpListContainers); err != nil {
		return nil, err
	}
	client, err := s.nativeClient()
	if err != nil {
		return nil, err
	}

	refs, err := client.ListContainers(ctx, filters)
	if err != nil {
		return nil, runtimeFailure("Failed to list containers", err)
	}
	containers := make([]*Container, 0, len(refs))
	for i := range refs {
		ref := refs[i]
		containers = append(containers, &Container{session: s, name: ref.Name, ref: &ref})
	}
	return containers, nil
}

// Container looks up a single container by name or ID.
func (s *Session) Container(ctx context.Context, name string) (*Container, error) {
	if _, err := dispatch(s.kind, OpGetContainer); err != nil {
		return nil, err
	}
	client, err := s.nativeClient()
	if err != nil {
		return nil, err
	}

	ref, err := client.GetContainer(ctx, name)
	if err != nil {
		return nil, runtimeFailure("Failed to get container "+name, err)
	}
	return &Container{session: s, name: name, ref: ref}, nil
}

func (s *Session) nativeClient() (runtime.Client, error) {
	if s.client == nil {
		return nil, cerrors.NewRuntimeError("Session for "+s.kind.String()+" is not logged in",
			"no runtime client", "Call Login before using the session",
			errors.New("session is not logged in"))
	}
	return s.client, nil
}

// runtimeFailure normalizes a Runtime Client error, keeping it for errors.Is/As.
func runtimeFailure(what string, err error) error {
	return cerrors.NewRuntimeError(what, err.Error(), "Check that the container engine is running and reachable",
		fmt.Errorf("%s: %w", what, err))
}
