package calendar

import (
	"context"

	"github.com/lensflow/lensflow/pkg/protocol"
)

// ActionFactory creates create_calendar_event action instances.
type ActionFactory struct {
	client Client
}

// NewActionFactory creates a factory backed by the given calendar client. A
// nil client falls back to log-only behavior.
func NewActionFactory(client Client) *ActionFactory {
	return &ActionFactory{client: client}
}

func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.client)
}

func (f *ActionFactory) ID() string {
	return "create_calendar_event"
}

func (f *ActionFactory) Name() string {
	return "Create Calendar Event"
}

func (f *ActionFactory) Description() string {
	return "Creates an event in the studio calendar from the run data."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Title of the calendar event.",
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Optional event description.",
			},
			"starts_at_field": map[string]any{
				"type":        "string",
				"description": "Run data key holding the RFC3339 start time.",
				"default":     "booking_starts_at",
			},
		},
		"required":             []string{"title"},
		"additionalProperties": false,
	}
}
