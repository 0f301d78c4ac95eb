package notify

import (
	"context"

	"github.com/lensflow/lensflow/pkg/protocol"
)

// ActionFactory creates notify_admin action instances.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) ID() string {
	return "notify_admin"
}

func (f *ActionFactory) Name() string {
	return "Notify Admin"
}

func (f *ActionFactory) Description() string {
	return "Surfaces a message to the studio operator."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message shown to the operator.",
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Severity of the notification.",
				"default":     "info",
				"enum":        []string{"info", "warn", "error"},
			},
		},
		"required":             []string{"message"},
		"additionalProperties": false,
	}
}
