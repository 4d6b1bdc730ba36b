package app

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"
)

// ExecutionStage represents the stages of the promote workflow
type ExecutionStage string

const (
	StageLogin      ExecutionStage = "login"
	StagePullSource ExecutionStage = "pull-source"
	StageTagTargets ExecutionStage = "tag-targets"
	StageVerifyTags ExecutionStage = "verify-tags"
	StageCompleted  ExecutionStage = "completed"
)

// stageOrder lists the stages in the order they run.
var stageOrder = []ExecutionStage{StageLogin, StagePullSource, StageTagTargets, StageVerifyTags, StageCompleted}

// ExecutionState represents the state of a promote run
type ExecutionState struct {
	SchemaVersion       string         `json:"schema_version"`
	RunID               string         `json:"run_id"`
	LastSuccessfulStage ExecutionStage `json:"last_successful_stage"`
	ProfilePath         string         `json:"profile_path"`
	Provider            string         `json:"provider"`
	Source              string         `json:"source"`
	TaggedTargets       []string       `json:"tagged_targets,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	LastUpdatedAt       time.Time      `json:"last_updated_at"`
}

const (
	StateFileName      = ".cloudkit.state.json"
	StateSchemaVersion = "1.0"
)

// loadState attempts to load the execution state from path.
// Returns nil if the file doesn't exist (fresh start).
func loadState(path string) (*ExecutionState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state ExecutionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if state.SchemaVersion != StateSchemaVersion {
		return nil, fmt.Errorf("unsupported state file schema version %q", state.SchemaVersion)
	}

	return &state, nil
}

// saveState persists the execution state to path.
func saveState(path string, state *ExecutionState) error {
	state.LastUpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

func newState(profilePath, provider, source, runID string) *ExecutionState {
	now := time.Now()
	return &ExecutionState{
		SchemaVersion: StateSchemaVersion,
		RunID:         runID,
		ProfilePath:   profilePath,
		Provider:      provider,
		Source:        source,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// shouldSkipStage reports whether stage already completed in a previous run.
// Login is never skipped: sessions are not persisted between runs.
func (s *ExecutionState) shouldSkipStage(stage ExecutionStage) bool {
	if s == nil || s.LastSuccessfulStage == "" || stage == StageLogin {
		return false
	}
	last := slices.Index(stageOrder, s.LastSuccessfulStage)
	current := slices.Index(stageOrder, stage)
	if last < 0 || current < 0 {
		return false
	}
	return current <= last
}

// getNextStage returns the next stage to execute based on the current state
func (s *ExecutionState) getNextStage() ExecutionStage {
	if s == nil || s.LastSuccessfulStage == "" {
		return stageOrder[0]
	}
	i := slices.Index(stageOrder, s.LastSuccessfulStage)
	if i < 0 {
		return stageOrder[0]
	}
	if i+1 >= len(stageOrder) {
		return StageCompleted
	}
	return stageOrder[i+1]
}

// isTagged reports whether target was tagged by an earlier attempt of this run.
func (s *ExecutionState) isTagged(target string) bool {
	return slices.Contains(s.TaggedTargets, target)
}

// matches reports whether a resumed state belongs to the same promotion.
func (s *ExecutionState) matches(profilePath, provider, source string) bool {
	return s.ProfilePath == profilePath && s.Provider == provider && s.Source == source
}

// removeStateFile removes the state file after successful completion
func removeStateFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
