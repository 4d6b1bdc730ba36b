package app

import (
	"context"
	"fmt"
	"log/slog"
)

// LoginStage opens the provider session every later stage works through.
type LoginStage struct {
	run *promotion
}

func newLoginStage(run *promotion) *LoginStage {
	return &LoginStage{run: run}
}

func (s *LoginStage) Name() ExecutionStage {
	return StageLogin
}

func (s *LoginStage) Execute(ctx context.Context, state *ExecutionState) error {
	provider := s.run.profile.Spec.Provider
	if s.run.isDryRun {
		s.run.console.PrintWarning(fmt.Sprintf("DRY RUN: Would log in to %s provider", provider.Kind))
		return nil
	}

	session, err := s.run.factory.NewSession(ctx, provider)
	if err != nil {
		return err
	}
	s.run.session = session

	s.run.console.PrintSuccess(fmt.Sprintf("Logged in to %s provider", provider.Kind))
	slog.Info("Login stage completed successfully", "provider", provider.Kind, "runId", state.RunID)
	return nil
}
