package app

import (
	"context"
	"fmt"
	"log/slog"

	"cloudkit/internal/cloud"
	"cloudkit/internal/executor"
	dockerruntime "cloudkit/internal/runtime"
	"cloudkit/pkg/profile"
	"cloudkit/pkg/runtime"
)

// ProviderFactory creates provider sessions from profile configuration. It
// decouples the workflow from the Docker client and cloud CLI it runs against.
type ProviderFactory struct {
	newClient runtime.ClientFactory
	executor  runtime.CommandExecutor
}

// FactoryOption configures a ProviderFactory.
type FactoryOption func(*ProviderFactory)

// WithRuntimeClientFactory replaces the Docker-backed runtime client.
func WithRuntimeClientFactory(factory runtime.ClientFactory) FactoryOption {
	return func(f *ProviderFactory) { f.newClient = factory }
}

// WithCommandExecutor replaces the gcloud command runner.
func WithCommandExecutor(exec runtime.CommandExecutor) FactoryOption {
	return func(f *ProviderFactory) { f.executor = exec }
}

// NewProviderFactory creates a factory using the Docker engine and the gcloud CLI.
func NewProviderFactory(opts ...FactoryOption) *ProviderFactory {
	f := &ProviderFactory{
		newClient: dockerruntime.NewClient,
		executor:  executor.NewGCloudRunner(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Credentials maps the profile's provider section onto session credentials.
func Credentials(kind cloud.ProviderKind, provider profile.Provider) cloud.Credentials {
	switch kind {
	case cloud.HostedRegistry:
		return cloud.UserPassword(provider.Username, provider.Password)
	case cloud.CLIRegistry:
		return cloud.ServiceAccountKey(provider.KeyID)
	default:
		return cloud.Credentials{}
	}
}

// NewSession creates and logs in a session for the configured provider.
func (f *ProviderFactory) NewSession(ctx context.Context, provider profile.Provider) (*cloud.Session, error) {
	kind, err := cloud.ParseProviderKind(provider.Kind)
	if err != nil {
		return nil, err
	}

	opts := []cloud.Option{
		cloud.WithClientFactory(f.newClient),
		cloud.WithExecutor(f.executor),
	}
	if provider.CredentialDir != "" {
		opts = append(opts, cloud.WithCredentialDir(provider.CredentialDir))
	}

	slog.Debug("Creating provider session", "provider", kind.String())
	session, err := cloud.NewSession(ctx, kind, Credentials(kind, provider), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s session: %w", kind, err)
	}
	return session, nil
}
