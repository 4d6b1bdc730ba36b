package app

import (
	"context"
	"fmt"
	"log/slog"
)

// TagTargetsStage tags the source image with every target. Targets tagged by
// an interrupted attempt are recorded in the state and not tagged again.
type TagTargetsStage struct {
	run *promotion
}

func newTagTargetsStage(run *promotion) *TagTargetsStage {
	return &TagTargetsStage{run: run}
}

func (s *TagTargetsStage) Name() ExecutionStage {
	return StageTagTargets
}

func (s *TagTargetsStage) Execute(ctx context.Context, state *ExecutionState) error {
	promote := s.run.profile.Spec.Promote
	if s.run.isDryRun {
		for _, target := range promote.Targets {
			s.run.console.PrintWarning(fmt.Sprintf("DRY RUN: Would tag %s as %s", promote.Source, target))
		}
		return nil
	}

	source, err := s.run.session.Image(ctx, promote.Source)
	if err != nil {
		return err
	}

	for _, target := range promote.Targets {
		if state.isTagged(target) {
			s.run.console.PrintInfo(fmt.Sprintf("Skipping %s (already tagged)", target))
			continue
		}

		if _, err := source.Tag(ctx, target); err != nil {
			return fmt.Errorf("tagging %s as %s: %w", promote.Source, target, err)
		}
		state.TaggedTargets = append(state.TaggedTargets, target)
		if err := s.run.save(state); err != nil {
			return err
		}

		s.run.console.PrintSuccess(fmt.Sprintf("Tagged %s as %s", promote.Source, target))
	}

	slog.Info("Tag-targets stage completed successfully", "source", promote.Source, "targets", len(promote.Targets))
	return nil
}
