// Package dispatch resolves action nodes to registered actions and executes
// them against the run context.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/registry"
)

// ActionDispatcher executes a single action node. It performs exactly one
// attempt; failure handling belongs to the caller.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, actionType models.ActionType, config map[string]any, executionCtx models.ExecutionContext) (map[string]any, error)
}

// Dispatcher resolves actions through the registry.
type Dispatcher struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewDispatcher creates an action dispatcher on top of the given registry.
func NewDispatcher(reg *registry.Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: reg, logger: logger}
}

// Dispatch validates the node config, builds the action and executes it.
func (d *Dispatcher) Dispatch(ctx context.Context, actionType models.ActionType, config map[string]any, executionCtx models.ExecutionContext) (map[string]any, error) {
	action, err := d.registry.CreateAction(ctx, string(actionType), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create action: %w", err)
	}

	logger := d.logger.With(
		"run_id", executionCtx.RunID,
		"workflow_id", executionCtx.WorkflowID,
	)

	result, err := action.Execute(ctx, executionCtx, logger)
	if err != nil {
		return nil, fmt.Errorf("action '%s' failed: %w", actionType, err)
	}

	return result, nil
}
