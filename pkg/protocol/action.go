// Package protocol defines the contracts for pluggable workflow actions.
package protocol

import (
	"context"
	"log/slog"

	"github.com/lensflow/lensflow/pkg/models"
)

// Action is a unit of side-effecting work executed by an action node.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory creates action instances and provides metadata about the
// action type.
type ActionFactory interface {
	// Create builds a new action instance from node configuration.
	Create(ctx context.Context, config map[string]any) (Action, error)

	// ID returns the unique identifier for this action type.
	ID() string

	// Name returns the human-readable name for this action type.
	Name() string

	// Description returns a description of what this action does.
	Description() string

	// Schema returns the JSON schema for configuring this action.
	Schema() map[string]any
}
