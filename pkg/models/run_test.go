package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkflowRun(t *testing.T) {
	workflow := &Workflow{
		ID:           "wf-1",
		Name:         "Deliver gallery",
		TriggerEvent: TriggerGalleryCreated,
		IsActive:     true,
	}
	payload := map[string]any{"gallery_id": "g-1"}

	run := NewWorkflowRun(workflow, "trigger-1", payload)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "wf-1", run.WorkflowID)
	assert.Equal(t, TriggerGalleryCreated, run.TriggerEvent)
	assert.Equal(t, RunStatusPending, run.Status)
	require.NotNil(t, run.CurrentNodeID)
	assert.Equal(t, "trigger-1", *run.CurrentNodeID)
	assert.Empty(t, run.ExecutionPath)
	assert.Equal(t, payload, run.TriggerPayload)
	assert.False(t, run.IsTerminal())
}

func TestWorkflowRun_Transitions(t *testing.T) {
	run := &WorkflowRun{Status: RunStatusPending}

	run.MarkRunning()
	assert.Equal(t, RunStatusRunning, run.Status)

	now := time.Now().UTC()
	run.MarkSuccess(now)
	assert.Equal(t, RunStatusSuccess, run.Status)
	assert.Nil(t, run.CurrentNodeID)
	require.NotNil(t, run.CompletedAt)
	assert.True(t, run.IsTerminal())

	// MarkRunning must not resurrect a terminal run.
	run.MarkRunning()
	assert.Equal(t, RunStatusSuccess, run.Status)
}

func TestWorkflowRun_MarkFailed(t *testing.T) {
	run := &WorkflowRun{Status: RunStatusRunning, ExecutionPath: []string{"trigger-1", "action-1"}}

	now := time.Now().UTC()
	run.MarkFailed(now, "send_email: smtp unreachable")

	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, "send_email: smtp unreachable", run.ErrorMessage)
	assert.Nil(t, run.CurrentNodeID)
	assert.Equal(t, []string{"trigger-1", "action-1"}, run.ExecutionPath,
		"failure must not touch the recorded path")
}

func TestExecutionContext_MergeData(t *testing.T) {
	execCtx := ExecutionContext{Data: map[string]any{"a": 1, "b": "x"}}

	execCtx.MergeData(map[string]any{"b": "y", "c": true})

	assert.Equal(t, map[string]any{"a": 1, "b": "y", "c": true}, execCtx.Data)

	clone := execCtx.CloneData()
	clone["a"] = 99
	assert.Equal(t, 1, execCtx.Data["a"], "clone must not alias the original")
}
