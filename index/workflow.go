package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// WorkflowStep is one stage of a tracked workflow.
type WorkflowStep struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
}

// WorkflowState is the persisted progress of one workflow run, stored at
// <storage>/workflows/<id>/workflow_state.json.
type WorkflowState struct {
	ID        string         `json:"id"`
	Steps     []WorkflowStep `json:"steps"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// workflowTracker persists step transitions as they happen. Persistence
// failures are ignored; tracking never blocks indexing.
type workflowTracker struct {
	path  string
	state WorkflowState
}

func newWorkflowTracker(storagePath, id string) *workflowTracker {
	return &workflowTracker{
		path:  filepath.Join(storagePath, "workflows", id, "workflow_state.json"),
		state: WorkflowState{ID: id},
	}
}

func (t *workflowTracker) set(stage, status string) {
	for i := range t.state.Steps {
		if t.state.Steps[i].Stage == stage {
			t.state.Steps[i].Status = status
			t.flush()
			return
		}
	}
	t.state.Steps = append(t.state.Steps, WorkflowStep{Stage: stage, Status: status})
	t.flush()
}

func (t *workflowTracker) start(stage string)  { t.set(stage, "running") }
func (t *workflowTracker) finish(stage string) { t.set(stage, "completed") }
func (t *workflowTracker) fail(stage string)   { t.set(stage, "failed") }

func (t *workflowTracker) flush() {
	t.state.UpdatedAt = time.Now().UTC()
	raw, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(t.path, raw, 0o644)
}

// LoadWorkflowState reads a persisted workflow state.
func LoadWorkflowState(storagePath, id string) (*WorkflowState, error) {
	raw, err := os.ReadFile(filepath.Join(storagePath, "workflows", id, "workflow_state.json"))
	if err != nil {
		return nil, err
	}
	var state WorkflowState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
