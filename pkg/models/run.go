package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// WorkflowRun is one durable execution of a workflow for one triggering
// occurrence. Created by the trigger dispatcher, mutated only by the run
// coordinator, never deleted by the engine.
type WorkflowRun struct {
	ID             string         `json:"id"`
	WorkflowID     string         `json:"workflow_id"`
	TriggerEvent   TriggerEvent   `json:"trigger_event"`
	TriggerPayload map[string]any `json:"trigger_payload,omitempty"`
	Status         RunStatus      `json:"status"`
	CurrentNodeID  *string        `json:"current_node_id,omitempty"`
	// ExecutionPath is the append-only ordered log of visited node ids.
	// It is both the progress cursor and the audit trail of the run.
	ExecutionPath []string   `json:"execution_path"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// NewWorkflowRun creates a pending run positioned at the workflow's trigger
// node, seeded with the trigger payload.
func NewWorkflowRun(workflow *Workflow, triggerNodeID string, payload map[string]any) *WorkflowRun {
	nodeID := triggerNodeID

	return &WorkflowRun{
		ID:             uuid.New().String(),
		WorkflowID:     workflow.ID,
		TriggerEvent:   workflow.TriggerEvent,
		TriggerPayload: payload,
		Status:         RunStatusPending,
		CurrentNodeID:  &nodeID,
		ExecutionPath:  []string{},
		StartedAt:      time.Now().UTC(),
	}
}

// AppendPath records a visited node. Entries are never reordered or removed.
func (r *WorkflowRun) AppendPath(nodeID string) {
	r.ExecutionPath = append(r.ExecutionPath, nodeID)
}

// MarkRunning moves a pending run into the running state.
func (r *WorkflowRun) MarkRunning() {
	if r.Status == RunStatusPending {
		r.Status = RunStatusRunning
	}
}

// MarkSuccess terminates the run successfully.
func (r *WorkflowRun) MarkSuccess(now time.Time) {
	r.Status = RunStatusSuccess
	r.CurrentNodeID = nil
	r.CompletedAt = &now
}

// MarkFailed terminates the run with an error message. Side effects already
// committed by earlier actions are not rolled back.
func (r *WorkflowRun) MarkFailed(now time.Time, message string) {
	r.Status = RunStatusFailed
	r.CurrentNodeID = nil
	r.ErrorMessage = message
	r.CompletedAt = &now
}

// IsTerminal reports whether the run has finished, successfully or not.
func (r *WorkflowRun) IsTerminal() bool {
	return r.Status == RunStatusSuccess || r.Status == RunStatusFailed
}
