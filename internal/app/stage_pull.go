package app

import (
	"context"
	"fmt"
	"log/slog"

	"cloudkit/internal/cloud"
)

// PullSourceStage resolves the source image and, where the provider can,
// refreshes it from its registry.
type PullSourceStage struct {
	run *promotion
}

func newPullSourceStage(run *promotion) *PullSourceStage {
	return &PullSourceStage{run: run}
}

func (s *PullSourceStage) Name() ExecutionStage {
	return StagePullSource
}

func (s *PullSourceStage) Execute(ctx context.Context, state *ExecutionState) error {
	source := s.run.profile.Spec.Promote.Source
	if s.run.isDryRun {
		s.run.console.PrintWarning(fmt.Sprintf("DRY RUN: Would pull source image %s", source))
		return nil
	}

	img, err := s.run.session.Image(ctx, source)
	if err != nil {
		return err
	}

	if cloud.Supports(s.run.session.Kind(), cloud.OpPull) {
		records, err := img.Pull(ctx)
		if err != nil {
			return err
		}
		slog.Debug("Pulled source image", "image", source, "records", len(records))
		s.run.console.PrintSuccess(fmt.Sprintf("Pulled source image %s", source))
	} else {
		s.run.console.PrintInfo(fmt.Sprintf("Source image %s is tagged in place by %s", source, s.run.session.Kind()))
	}

	slog.Info("Pull-source stage completed successfully", "image", source, "provider", s.run.session.Kind().String())
	return nil
}
