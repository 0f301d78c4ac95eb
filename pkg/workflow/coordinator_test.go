package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/persistence"
	"github.com/lensflow/lensflow/pkg/persistence/memory"
)

// fakeDispatcher records dispatched actions and returns canned results.
type fakeDispatcher struct {
	results map[models.ActionType]map[string]any
	errs    map[models.ActionType]error
	calls   []models.ActionType
	data    []map[string]any
}

func (d *fakeDispatcher) Dispatch(_ context.Context, actionType models.ActionType, _ map[string]any, executionCtx models.ExecutionContext) (map[string]any, error) {
	d.calls = append(d.calls, actionType)
	d.data = append(d.data, executionCtx.CloneData())

	if err, ok := d.errs[actionType]; ok {
		return nil, err
	}

	return d.results[actionType], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(t *testing.T) (*memory.Persistence, *fakeDispatcher, *Coordinator) {
	t.Helper()

	store := memory.NewPersistence()
	dispatcher := &fakeDispatcher{
		results: make(map[models.ActionType]map[string]any),
		errs:    make(map[models.ActionType]error),
	}
	coordinator := NewCoordinator(store, dispatcher, testLogger())

	return store, dispatcher, coordinator
}

func saveWorkflow(t *testing.T, store *memory.Persistence, event models.TriggerEvent, nodes []*models.WorkflowNode, edges []*models.WorkflowEdge) *models.Workflow {
	t.Helper()

	workflow := &models.Workflow{
		Name:         "test workflow",
		TriggerEvent: event,
		IsActive:     true,
	}

	require.NoError(t, store.GraphRepository().SaveWorkflow(context.Background(), workflow, nodes, edges))

	return workflow
}

func startRun(t *testing.T, store *memory.Persistence, coordinator *Coordinator, workflow *models.Workflow, payload map[string]any) *models.WorkflowRun {
	t.Helper()

	ctx := context.Background()

	run := models.NewWorkflowRun(workflow, "trigger-1", payload)
	require.NoError(t, store.RunRepository().CreateRun(ctx, run))
	require.NoError(t, coordinator.Start(ctx, run))

	return run
}

func TestLinearWorkflowRunsToCompletion(t *testing.T) {
	store, dispatcher, coordinator := newTestEngine(t)

	workflow := saveWorkflow(t, store, models.TriggerGalleryDelivered,
		[]*models.WorkflowNode{
			{ID: "trigger-1", Type: models.NodeTypeTrigger},
			{ID: "action-1", Type: models.NodeTypeAction, ActionType: models.ActionSendEmail, Config: map[string]any{"template": "thank_you"}},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		[]*models.WorkflowEdge{
			{SourceNodeID: "trigger-1", TargetNodeID: "action-1", Label: models.EdgeLabelDefault},
			{SourceNodeID: "action-1", TargetNodeID: "end-1", Label: models.EdgeLabelDefault, SortOrder: 1},
		})

	run := startRun(t, store, coordinator, workflow, map[string]any{"client_email": "ana@example.com"})

	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Nil(t, run.CurrentNodeID)
	assert.NotNil(t, run.CompletedAt)
	assert.Equal(t, []string{"trigger-1", "action-1", "end-1"}, run.ExecutionPath)
	assert.Equal(t, []models.ActionType{models.ActionSendEmail}, dispatcher.calls)

	// Actions see the trigger payload.
	assert.Equal(t, "ana@example.com", dispatcher.data[0]["client_email"])
}

func TestDelayNodeSuspendsRun(t *testing.T) {
	store, dispatcher, coordinator := newTestEngine(t)

	workflow := saveWorkflow(t, store, models.TriggerGalleryDelivered,
		[]*models.WorkflowNode{
			{ID: "trigger-1", Type: models.NodeTypeTrigger},
			{ID: "delay-1", Type: models.NodeTypeDelay, Config: map[string]any{"amount": 3, "unit": "days"}},
			{ID: "action-1", Type: models.NodeTypeAction, ActionType: models.ActionSendEmail, Config: map[string]any{"template": "review_request"}},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		[]*models.WorkflowEdge{
			{SourceNodeID: "trigger-1", TargetNodeID: "delay-1", Label: models.EdgeLabelDefault},
			{SourceNodeID: "delay-1", TargetNodeID: "action-1", Label: models.EdgeLabelDefault, SortOrder: 1},
			{SourceNodeID: "action-1", TargetNodeID: "end-1", Label: models.EdgeLabelDefault, SortOrder: 2},
		})

	run := startRun(t, store, coordinator, workflow, map[string]any{"gallery_id": "g-1"})

	assert.Equal(t, models.RunStatusRunning, run.Status)
	require.NotNil(t, run.CurrentNodeID)
	assert.Equal(t, "delay-1", *run.CurrentNodeID)
	assert.Equal(t, []string{"trigger-1", "delay-1"}, run.ExecutionPath)

	// The action past the delay has not executed.
	assert.Empty(t, dispatcher.calls)

	// A pending step exists, due roughly three days out, carrying the data
	// snapshot. Claim it with a far-future clock to inspect it.
	ctx := context.Background()
	steps, err := store.StepRepository().ClaimDueSteps(ctx, time.Now().UTC().Add(4*24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, steps, 1)

	step := steps[0]
	assert.Equal(t, run.ID, step.WorkflowRunID)
	assert.Equal(t, "delay-1", step.NodeID)
	assert.Equal(t, "g-1", step.Payload["gallery_id"])
	assert.WithinDuration(t, time.Now().UTC().Add(3*24*time.Hour), step.ScheduledFor, time.Minute)
}

func TestConditionBranching(t *testing.T) {
	nodes := []*models.WorkflowNode{
		{ID: "trigger-1", Type: models.NodeTypeTrigger},
		{ID: "cond-1", Type: models.NodeTypeCondition, Config: map[string]any{
			"field": "rating", "operator": "greater_than", "value": 3,
		}},
		{ID: "action-happy", Type: models.NodeTypeAction, ActionType: models.ActionSendEmail, Config: map[string]any{"template": "referral"}},
		{ID: "action-sad", Type: models.NodeTypeAction, ActionType: models.ActionNotifyAdmin, Config: map[string]any{"message": "low rating"}},
		{ID: "end-1", Type: models.NodeTypeEnd},
	}
	edges := []*models.WorkflowEdge{
		{SourceNodeID: "trigger-1", TargetNodeID: "cond-1", Label: models.EdgeLabelDefault},
		{SourceNodeID: "cond-1", TargetNodeID: "action-happy", Label: models.EdgeLabelTrue, SortOrder: 1},
		{SourceNodeID: "cond-1", TargetNodeID: "action-sad", Label: models.EdgeLabelFalse, SortOrder: 2},
		{SourceNodeID: "action-happy", TargetNodeID: "end-1", Label: models.EdgeLabelDefault, SortOrder: 3},
		{SourceNodeID: "action-sad", TargetNodeID: "end-1", Label: models.EdgeLabelDefault, SortOrder: 4},
	}

	tests := []struct {
		name       string
		payload    map[string]any
		wantAction models.ActionType
		wantNode   string
	}{
		{
			name:       "true branch",
			payload:    map[string]any{"rating": 5},
			wantAction: models.ActionSendEmail,
			wantNode:   "action-happy",
		},
		{
			name:       "false branch",
			payload:    map[string]any{"rating": 2},
			wantAction: models.ActionNotifyAdmin,
			wantNode:   "action-sad",
		},
		{
			name:       "missing field fails closed",
			payload:    map[string]any{},
			wantAction: models.ActionNotifyAdmin,
			wantNode:   "action-sad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dispatcher, coordinator := newTestEngine(t)
			workflow := saveWorkflow(t, store, models.TriggerGalleryReviewSubmitted, nodes, edges)

			run := startRun(t, store, coordinator, workflow, tt.payload)

			assert.Equal(t, models.RunStatusSuccess, run.Status)
			assert.Equal(t, []models.ActionType{tt.wantAction}, dispatcher.calls)
			assert.Contains(t, run.ExecutionPath, tt.wantNode)
		})
	}
}

func TestActionFailureFailsRun(t *testing.T) {
	store, dispatcher, coordinator := newTestEngine(t)
	dispatcher.errs[models.ActionSendWebhook] = errors.New("endpoint unreachable")

	workflow := saveWorkflow(t, store, models.TriggerBookingCreated,
		[]*models.WorkflowNode{
			{ID: "trigger-1", Type: models.NodeTypeTrigger},
			{ID: "action-1", Type: models.NodeTypeAction, ActionType: models.ActionSendWebhook, Config: map[string]any{"url": "https://x"}},
			{ID: "action-2", Type: models.NodeTypeAction, ActionType: models.ActionSendEmail, Config: map[string]any{"template": "t"}},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		[]*models.WorkflowEdge{
			{SourceNodeID: "trigger-1", TargetNodeID: "action-1", Label: models.EdgeLabelDefault},
			{SourceNodeID: "action-1", TargetNodeID: "action-2", Label: models.EdgeLabelDefault, SortOrder: 1},
			{SourceNodeID: "action-2", TargetNodeID: "end-1", Label: models.EdgeLabelDefault, SortOrder: 2},
		})

	run := startRun(t, store, coordinator, workflow, nil)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "endpoint unreachable")
	assert.Nil(t, run.CurrentNodeID)
	assert.NotNil(t, run.CompletedAt)

	// The failing action executed once, the downstream action never did.
	assert.Equal(t, []models.ActionType{models.ActionSendWebhook}, dispatcher.calls)

	// The path stops at the last successfully visited node.
	assert.Equal(t, []string{"trigger-1"}, run.ExecutionPath)
}

func TestActionResultsFlowDownstream(t *testing.T) {
	store, dispatcher, coordinator := newTestEngine(t)
	dispatcher.results[models.ActionCreateGallery] = map[string]any{"gallery_id": "g-42"}

	workflow := saveWorkflow(t, store, models.TriggerClientCreated,
		[]*models.WorkflowNode{
			{ID: "trigger-1", Type: models.NodeTypeTrigger},
			{ID: "action-1", Type: models.NodeTypeAction, ActionType: models.ActionCreateGallery, Config: map[string]any{"name": "n"}},
			{ID: "action-2", Type: models.NodeTypeAction, ActionType: models.ActionUpdateGalleryStatus, Config: map[string]any{"status": "delivered"}},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		[]*models.WorkflowEdge{
			{SourceNodeID: "trigger-1", TargetNodeID: "action-1", Label: models.EdgeLabelDefault},
			{SourceNodeID: "action-1", TargetNodeID: "action-2", Label: models.EdgeLabelDefault, SortOrder: 1},
			{SourceNodeID: "action-2", TargetNodeID: "end-1", Label: models.EdgeLabelDefault, SortOrder: 2},
		})

	run := startRun(t, store, coordinator, workflow, map[string]any{"client_id": "c-1"})

	assert.Equal(t, models.RunStatusSuccess, run.Status)
	require.Len(t, dispatcher.data, 2)

	// The second action sees the first action's output merged with the seed.
	assert.Equal(t, "g-42", dispatcher.data[1]["gallery_id"])
	assert.Equal(t, "c-1", dispatcher.data[1]["client_id"])
}

func TestTriggerPayloadStaysImmutable(t *testing.T) {
	store, dispatcher, coordinator := newTestEngine(t)
	dispatcher.results[models.ActionCreateGallery] = map[string]any{"gallery_id": "g-42"}

	workflow := saveWorkflow(t, store, models.TriggerClientCreated,
		[]*models.WorkflowNode{
			{ID: "trigger-1", Type: models.NodeTypeTrigger},
			{ID: "action-1", Type: models.NodeTypeAction, ActionType: models.ActionCreateGallery, Config: map[string]any{"name": "n"}},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		[]*models.WorkflowEdge{
			{SourceNodeID: "trigger-1", TargetNodeID: "action-1", Label: models.EdgeLabelDefault},
			{SourceNodeID: "action-1", TargetNodeID: "end-1", Label: models.EdgeLabelDefault, SortOrder: 1},
		})

	payload := map[string]any{"client_id": "c-1"}
	run := startRun(t, store, coordinator, workflow, payload)

	assert.Equal(t, models.RunStatusSuccess, run.Status)

	// Action results flow through the context, never back into the seed.
	stored, err := store.RunRepository().RunByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"client_id": "c-1"}, stored.TriggerPayload)
	assert.Equal(t, map[string]any{"client_id": "c-1"}, payload)
}

// failingStepRepository errors on every step write.
type failingStepRepository struct {
	persistence.StepRepository
	err error
}

func (r *failingStepRepository) CreateStep(_ context.Context, _ *models.ScheduledStep) error {
	return r.err
}

// stepFailingPersistence swaps the step repository of a working store.
type stepFailingPersistence struct {
	*memory.Persistence
	steps persistence.StepRepository
}

func (p *stepFailingPersistence) StepRepository() persistence.StepRepository {
	return p.steps
}

func TestSchedulingPersistenceFailureFailsRun(t *testing.T) {
	store, _, _ := newTestEngine(t)
	workflow := delayedWorkflow(t, store)

	wrapped := &stepFailingPersistence{
		Persistence: store,
		steps: &failingStepRepository{
			StepRepository: store.StepRepository(),
			err:            errors.New("disk full"),
		},
	}
	coordinator := NewCoordinator(wrapped, &fakeDispatcher{}, testLogger())

	ctx := context.Background()
	run := models.NewWorkflowRun(workflow, "trigger-1", nil)
	require.NoError(t, store.RunRepository().CreateRun(ctx, run))

	err := coordinator.Start(ctx, run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist scheduled step")

	stored, err := store.RunRepository().RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "failed to schedule delayed step")
	assert.Equal(t, []string{"trigger-1"}, stored.ExecutionPath)
}

func TestMissingEdgeEndsRunSuccessfully(t *testing.T) {
	store, dispatcher, coordinator := newTestEngine(t)

	workflow := saveWorkflow(t, store, models.TriggerGalleryCreated,
		[]*models.WorkflowNode{
			{ID: "trigger-1", Type: models.NodeTypeTrigger},
			{ID: "action-1", Type: models.NodeTypeAction, ActionType: models.ActionNotifyAdmin, Config: map[string]any{"message": "m"}},
		},
		[]*models.WorkflowEdge{
			{SourceNodeID: "trigger-1", TargetNodeID: "action-1", Label: models.EdgeLabelDefault},
		})

	run := startRun(t, store, coordinator, workflow, nil)

	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Equal(t, []models.ActionType{models.ActionNotifyAdmin}, dispatcher.calls)
}

func TestTriggerWithoutOutgoingEdgeFailsRun(t *testing.T) {
	store, dispatcher, coordinator := newTestEngine(t)

	workflow := saveWorkflow(t, store, models.TriggerGalleryCreated,
		[]*models.WorkflowNode{
			{ID: "trigger-1", Type: models.NodeTypeTrigger},
		},
		nil)

	run := startRun(t, store, coordinator, workflow, nil)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "malformed graph")
	assert.Empty(t, dispatcher.calls)
	assert.Empty(t, run.ExecutionPath)
}

func TestConditionWithoutBranchFailsRun(t *testing.T) {
	store, _, coordinator := newTestEngine(t)

	// Only the true branch is wired; a false evaluation has nowhere to go.
	workflow := saveWorkflow(t, store, models.TriggerGalleryReviewSubmitted,
		[]*models.WorkflowNode{
			{ID: "trigger-1", Type: models.NodeTypeTrigger},
			{ID: "cond-1", Type: models.NodeTypeCondition, Config: map[string]any{
				"field": "rating", "operator": "greater_than", "value": 3,
			}},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		[]*models.WorkflowEdge{
			{SourceNodeID: "trigger-1", TargetNodeID: "cond-1", Label: models.EdgeLabelDefault},
			{SourceNodeID: "cond-1", TargetNodeID: "end-1", Label: models.EdgeLabelTrue, SortOrder: 1},
		})

	run := startRun(t, store, coordinator, workflow, map[string]any{"rating": 1})

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "no 'false' branch")
	assert.Equal(t, []string{"trigger-1"}, run.ExecutionPath)
}

func TestCyclicGraphFailsRun(t *testing.T) {
	store, dispatcher, coordinator := newTestEngine(t)

	workflow := saveWorkflow(t, store, models.TriggerGalleryCreated,
		[]*models.WorkflowNode{
			{ID: "trigger-1", Type: models.NodeTypeTrigger},
			{ID: "action-1", Type: models.NodeTypeAction, ActionType: models.ActionNotifyAdmin, Config: map[string]any{"message": "m"}},
			{ID: "action-2", Type: models.NodeTypeAction, ActionType: models.ActionNotifyAdmin, Config: map[string]any{"message": "m"}},
		},
		[]*models.WorkflowEdge{
			{SourceNodeID: "trigger-1", TargetNodeID: "action-1", Label: models.EdgeLabelDefault},
			{SourceNodeID: "action-1", TargetNodeID: "action-2", Label: models.EdgeLabelDefault, SortOrder: 1},
			{SourceNodeID: "action-2", TargetNodeID: "action-1", Label: models.EdgeLabelDefault, SortOrder: 2},
		})

	run := startRun(t, store, coordinator, workflow, nil)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "graph cycle suspected")
	assert.NotEmpty(t, dispatcher.calls)
}

func TestInvalidDelayConfigFailsRun(t *testing.T) {
	store, _, coordinator := newTestEngine(t)

	workflow := saveWorkflow(t, store, models.TriggerGalleryDelivered,
		[]*models.WorkflowNode{
			{ID: "trigger-1", Type: models.NodeTypeTrigger},
			{ID: "delay-1", Type: models.NodeTypeDelay, Config: map[string]any{"amount": 2, "unit": "weeks"}},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		[]*models.WorkflowEdge{
			{SourceNodeID: "trigger-1", TargetNodeID: "delay-1", Label: models.EdgeLabelDefault},
			{SourceNodeID: "delay-1", TargetNodeID: "end-1", Label: models.EdgeLabelDefault, SortOrder: 1},
		})

	run := startRun(t, store, coordinator, workflow, nil)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "invalid delay config")
}

func TestRunProgressIsPersisted(t *testing.T) {
	store, _, coordinator := newTestEngine(t)

	workflow := saveWorkflow(t, store, models.TriggerGalleryDelivered,
		[]*models.WorkflowNode{
			{ID: "trigger-1", Type: models.NodeTypeTrigger},
			{ID: "end-1", Type: models.NodeTypeEnd},
		},
		[]*models.WorkflowEdge{
			{SourceNodeID: "trigger-1", TargetNodeID: "end-1", Label: models.EdgeLabelDefault},
		})

	run := startRun(t, store, coordinator, workflow, nil)

	stored, err := store.RunRepository().RunByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, stored.Status)
	assert.Equal(t, []string{"trigger-1", "end-1"}, stored.ExecutionPath)
}
