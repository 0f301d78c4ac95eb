package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/persistence"
)

// TriggerDispatcher fans a platform event out to every active workflow
// listening on it, creating and starting one run per match.
type TriggerDispatcher struct {
	persistence persistence.Persistence
	coordinator *Coordinator
	logger      *slog.Logger
}

// NewTriggerDispatcher creates a trigger dispatcher.
func NewTriggerDispatcher(p persistence.Persistence, coordinator *Coordinator, logger *slog.Logger) *TriggerDispatcher {
	return &TriggerDispatcher{
		persistence: p,
		coordinator: coordinator,
		logger:      logger.With("module", "trigger_dispatcher"),
	}
}

// Dispatch creates a run for every active workflow whose trigger matches the
// event. Zero matches is a silent no-op. Returns the runs it created; a
// failed run still counts as created.
func (d *TriggerDispatcher) Dispatch(ctx context.Context, event models.TriggerEvent, payload map[string]any) ([]*models.WorkflowRun, error) {
	if !event.IsValid() {
		return nil, fmt.Errorf("unknown trigger event %q", event)
	}

	matches, err := d.persistence.GraphRepository().ActiveWorkflowsByTrigger(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to match workflows for event %s: %w", event, err)
	}

	if len(matches) == 0 {
		return nil, nil
	}

	runs := make([]*models.WorkflowRun, 0, len(matches))

	for _, match := range matches {
		run, err := d.startRun(ctx, match, payload)
		if err != nil {
			return runs, err
		}

		runs = append(runs, run)
	}

	d.logger.InfoContext(ctx, "Event dispatched", "event", event, "runs_created", len(runs))

	return runs, nil
}

func (d *TriggerDispatcher) startRun(ctx context.Context, workflow *models.Workflow, payload map[string]any) (*models.WorkflowRun, error) {
	loaded, err := d.persistence.GraphRepository().WorkflowByID(ctx, workflow.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", workflow.ID, err)
	}

	graph, err := NewGraph(loaded)
	if err != nil {
		return nil, fmt.Errorf("workflow %s has an invalid graph: %w", workflow.ID, err)
	}

	run := models.NewWorkflowRun(loaded, graph.TriggerNode().ID, payload)

	if err := d.persistence.RunRepository().CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run for workflow %s: %w", workflow.ID, err)
	}

	if err := d.coordinator.Start(ctx, run); err != nil {
		return run, err
	}

	return run, nil
}
