// Package notify provides the admin notification action.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lensflow/lensflow/pkg/models"
)

var ErrMessageRequired = errors.New("notify_admin requires a 'message' in configuration")

// Action surfaces a message to the studio operator. Delivery is a structured
// log line picked up by the operator's log pipeline.
type Action struct {
	Message string
	Level   string
}

// NewAction creates a notify_admin action from node configuration.
func NewAction(config map[string]any) (*Action, error) {
	message, _ := config["message"].(string)
	if message == "" {
		return nil, ErrMessageRequired
	}

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &Action{Message: message, Level: level}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With(
		"action_type", "notify_admin",
		"run_id", executionCtx.RunID,
		"workflow_id", executionCtx.WorkflowID,
	)

	switch a.Level {
	case "warn":
		logger.WarnContext(ctx, a.Message)
	case "error":
		logger.ErrorContext(ctx, a.Message)
	default:
		logger.InfoContext(ctx, a.Message)
	}

	return map[string]any{
		"notified": true,
	}, nil
}
