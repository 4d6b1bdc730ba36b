package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/go-containerregistry/pkg/name"

	"cloudkit/internal/cloud"
	cerrors "cloudkit/internal/errors"
)

// VerifyTagsStage reads the tags back from the provider and checks every
// target is present.
type VerifyTagsStage struct {
	run *promotion
}

func newVerifyTagsStage(run *promotion) *VerifyTagsStage {
	return &VerifyTagsStage{run: run}
}

func (s *VerifyTagsStage) Name() ExecutionStage {
	return StageVerifyTags
}

func (s *VerifyTagsStage) Execute(ctx context.Context, state *ExecutionState) error {
	targets := s.run.profile.Spec.Promote.Targets
	if s.run.isDryRun {
		s.run.console.PrintWarning(fmt.Sprintf("DRY RUN: Would verify %d target tags", len(targets)))
		return nil
	}

	var missing []string
	for _, target := range targets {
		ok, err := s.hasTag(ctx, target)
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, target)
		}
	}

	if len(missing) > 0 {
		s.run.console.PrintList("Missing tags:", missing)
		return cerrors.NewRuntimeError("Verification of promoted tags failed",
			fmt.Sprintf("%d of %d targets were not found", len(missing), len(targets)),
			"Re-run the promotion; tagged targets are remembered in the state file",
			fmt.Errorf("tags not found after promotion: %v", missing))
	}

	s.run.console.PrintSuccess(fmt.Sprintf("Verified %d target tags", len(targets)))
	slog.Info("Verify-tags stage completed successfully", "targets", len(targets))
	return nil
}

// hasTag looks target up the way the provider lists tags: native providers
// report references in the engine's short form, the cloud CLI reports bare
// tags per repository.
func (s *VerifyTagsStage) hasTag(ctx context.Context, target string) (bool, error) {
	session := s.run.session
	if cloud.Capability(session.Kind(), cloud.OpGetImage) != cloud.Detached {
		want, err := name.ParseReference(target, name.WithDefaultTag("latest"))
		if err != nil {
			return false, invalidTarget(target, err)
		}
		img, err := session.Image(ctx, target)
		if err != nil {
			return false, err
		}
		tags, err := img.Tags(ctx)
		if err != nil {
			return false, err
		}
		return slices.ContainsFunc(tags, func(tag string) bool {
			got, err := name.ParseReference(tag, name.WithDefaultTag("latest"))
			return err == nil && got.Name() == want.Name()
		}), nil
	}

	ref, err := name.NewTag(target)
	if err != nil {
		return false, invalidTarget(target, err)
	}
	repo, err := session.Image(ctx, ref.Context().Name())
	if err != nil {
		return false, err
	}
	tags, err := repo.GetTags(ctx, "")
	if err != nil {
		return false, err
	}
	return slices.Contains(tags, ref.TagStr()), nil
}

func invalidTarget(target string, err error) error {
	return cerrors.NewConfigError("Invalid promotion target "+target,
		err.Error(), "Use a full image reference such as gcr.io/project/app:tag", err)
}
