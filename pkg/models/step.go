package models

import (
	"time"

	"github.com/google/uuid"
)

// StepStatus is the lifecycle state of a scheduled step.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusProcessing StepStatus = "processing"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// StepRetentionPeriod is how long completed steps are kept before the
// poller's housekeeping pass deletes them.
const StepRetentionPeriod = 7 * 24 * time.Hour

// ScheduledStep is a durable suspension point created when a run reaches a
// delay node. NodeID is the delay node that produced it, not the next node;
// Payload is the context snapshot carried across the suspension.
type ScheduledStep struct {
	ID            string         `json:"id"`
	WorkflowRunID string         `json:"workflow_run_id"`
	NodeID        string         `json:"node_id"`
	ScheduledFor  time.Time      `json:"scheduled_for"`
	Payload       map[string]any `json:"payload,omitempty"`
	Status        StepStatus     `json:"status"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	ProcessedAt   *time.Time     `json:"processed_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NewScheduledStep creates a pending suspension for the given run and delay
// node, due at scheduledFor.
func NewScheduledStep(runID, nodeID string, scheduledFor time.Time, payload map[string]any) *ScheduledStep {
	return &ScheduledStep{
		ID:            uuid.New().String(),
		WorkflowRunID: runID,
		NodeID:        nodeID,
		ScheduledFor:  scheduledFor,
		Payload:       payload,
		Status:        StepStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}
