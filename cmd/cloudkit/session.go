package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"cloudkit/internal/app"
	"cloudkit/internal/cloud"
	"cloudkit/internal/parser"
	"cloudkit/pkg/profile"
)

var errNoProfile = errors.New("no profile file given")

// providerConfig reads the provider from the profile, if any, and applies the
// command-line overrides. Without either the local engine is used.
func providerConfig(cmd *cobra.Command) (profile.Provider, error) {
	provider := profile.Provider{Kind: cloud.Local.String()}

	if file, _ := cmd.Flags().GetString("file"); file != "" {
		prof, err := parser.Parse(file)
		if err != nil {
			return provider, err
		}
		provider = prof.Spec.Provider
	}

	overrides := map[string]*string{
		"provider":       &provider.Kind,
		"username":       &provider.Username,
		"key-id":         &provider.KeyID,
		"credential-dir": &provider.CredentialDir,
	}
	for flag, field := range overrides {
		if cmd.Flags().Changed(flag) {
			*field, _ = cmd.Flags().GetString(flag)
		}
	}
	if provider.Password == "" {
		provider.Password = os.Getenv(parser.PasswordEnv)
	}
	return provider, nil
}

// openSession logs in to the configured provider.
func openSession(cmd *cobra.Command) (*cloud.Session, error) {
	provider, err := providerConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.NewProviderFactory().NewSession(cmd.Context(), provider)
}
