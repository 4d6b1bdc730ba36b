package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"cloudkit/internal/cloud"
	cerrors "cloudkit/internal/errors"
	"cloudkit/internal/parser"
	"cloudkit/internal/ui"
	"cloudkit/pkg/profile"
)

// promotion is the shared context of one promote run. The login stage sets
// session; later stages use it.
type promotion struct {
	profile   *profile.Profile
	factory   *ProviderFactory
	console   *ui.Console
	stateFile string
	isDryRun  bool
	session   *cloud.Session
}

// Promoter runs the stateful promote workflow.
type Promoter struct {
	factory   *ProviderFactory
	console   *ui.Console
	stateFile string
}

// NewPromoter creates a Promoter keeping its state in StateFileName.
func NewPromoter(factory *ProviderFactory, console *ui.Console) *Promoter {
	return &Promoter{factory: factory, console: console, stateFile: StateFileName}
}

// Promote tags the profile's source image with every target using the
// default Docker and gcloud backed providers.
func Promote(ctx context.Context, profilePath string, isDryRun, retainState bool) error {
	return NewPromoter(NewProviderFactory(), ui.NewConsole()).Run(ctx, profilePath, isDryRun, retainState)
}

// Run orchestrates the promote workflow with resume capability: a run that
// fails leaves a state file, and the next run continues after the last
// completed stage.
func (p *Promoter) Run(ctx context.Context, profilePath string, isDryRun, retainState bool) error {
	slog.Info("Starting promote workflow", "profilePath", profilePath, "dryRun", isDryRun)

	prof, err := parser.Parse(profilePath)
	if err != nil {
		return fmt.Errorf("profile parsing failed: %w", err)
	}
	if prof.Spec.Promote == nil {
		return cerrors.NewConfigError("Profile "+prof.Metadata.Name+" has nothing to promote",
			"spec.promote is missing", "Add spec.promote with a source image and target tags",
			fmt.Errorf("profile %s has no spec.promote section", profilePath))
	}
	slog.Info("Profile parsed successfully", "name", prof.Metadata.Name, "provider", prof.Spec.Provider.Kind)

	state, err := loadState(p.stateFile)
	if err != nil {
		return fmt.Errorf("failed to load execution state: %w", err)
	}

	// A retained state of a finished run is an audit record, not a resume point.
	if state != nil && state.LastSuccessfulStage == StageCompleted {
		slog.Info("Previous run already completed, starting a new run", "previousRunId", state.RunID)
		p.console.PrintInfo(fmt.Sprintf("Previous run %s completed. Starting a new run", state.RunID))
		state = nil
	}

	source := prof.Spec.Promote.Source
	if state != nil && !state.matches(profilePath, prof.Spec.Provider.Kind, source) {
		return cerrors.NewConfigError("State file belongs to a different promotion",
			fmt.Sprintf("run %s promoted %s from %s", state.RunID, state.Source, state.ProfilePath),
			"Finish that promotion or remove "+p.stateFile,
			fmt.Errorf("state file %s does not match profile %s", p.stateFile, profilePath))
	}

	if state == nil {
		runID := uuid.New().String()
		state = newState(profilePath, prof.Spec.Provider.Kind, source, runID)
		slog.Info("Starting new promote workflow", "runId", runID, "profilePath", profilePath)
	} else {
		p.console.PrintWarning(fmt.Sprintf("State file found. Resuming from stage: %s", state.getNextStage()))
		slog.Info("Resuming promote workflow", "runId", state.RunID, "nextStage", state.getNextStage(), "lastStage", state.LastSuccessfulStage)
	}

	if isDryRun {
		p.console.PrintWarning("DRY RUN MODE - No images will be pulled, tagged or pushed")
	}

	run := &promotion{
		profile:   prof,
		factory:   p.factory,
		console:   p.console,
		stateFile: p.stateFile,
		isDryRun:  isDryRun,
	}
	if err := runStages(ctx, buildStages(run), state, run); err != nil {
		return err
	}

	state.LastSuccessfulStage = StageCompleted
	if !isDryRun {
		if retainState {
			if err := saveState(p.stateFile, state); err != nil {
				slog.Warn("Failed to save final state", "error", err)
			} else {
				slog.Info("State file retained for auditing", "file", p.stateFile)
			}
		} else if err := removeStateFile(p.stateFile); err != nil {
			slog.Warn("Failed to clean up state file", "error", err)
		}
	}

	if isDryRun {
		p.console.PrintSuccess("DRY RUN COMPLETED - All stages simulated successfully")
	} else {
		p.console.PrintSuccess(fmt.Sprintf("Promoted %s to %d targets", source, len(prof.Spec.Promote.Targets)))
	}

	slog.Info("Promote workflow completed successfully", "profileName", prof.Metadata.Name, "runId", state.RunID, "dryRun", isDryRun)
	return nil
}

func buildStages(run *promotion) []Stage {
	return []Stage{
		newLoginStage(run),
		newPullSourceStage(run),
		newTagTargetsStage(run),
		newVerifyTagsStage(run),
	}
}

// runStages executes stages in order, skipping those a previous run completed
// and recording progress after each one.
func runStages(ctx context.Context, stages []Stage, state *ExecutionState, run *promotion) error {
	for i, stage := range stages {
		if state.shouldSkipStage(stage.Name()) {
			run.console.PrintInfo(fmt.Sprintf("Stage %d: %s (skipped - already completed)", i+1, stage.Name()))
			continue
		}

		run.console.PrintInfo(fmt.Sprintf("Stage %d: %s", i+1, stage.Name()))
		if err := stage.Execute(ctx, state); err != nil {
			slog.Error("Stage failed", "stage", stage.Name(), "runId", state.RunID, "error", err)
			return fmt.Errorf("%s stage failed: %w", stage.Name(), err)
		}

		if stage.Name() == StageLogin {
			continue
		}
		state.LastSuccessfulStage = stage.Name()
		if err := run.save(state); err != nil {
			return fmt.Errorf("failed to save state after %s: %w", stage.Name(), err)
		}
	}
	return nil
}

// save persists state unless the run is a dry run.
func (r *promotion) save(state *ExecutionState) error {
	if r.isDryRun {
		return nil
	}
	return saveState(r.stateFile, state)
}
