package sendwebhook

import (
	"context"

	"github.com/lensflow/lensflow/pkg/protocol"
)

// ActionFactory creates send_webhook action instances.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) ID() string {
	return "send_webhook"
}

func (f *ActionFactory) Name() string {
	return "Send Webhook"
}

func (f *ActionFactory) Description() string {
	return "Posts the run data as JSON to an external HTTP endpoint."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to send the webhook to.",
				"examples":    []string{"https://hooks.example.com/lensflow"},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method to use.",
				"default":     "POST",
				"enum":        []string{"POST", "PUT", "PATCH"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "HTTP headers to include in the request.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
		},
		"required":             []string{"url"},
		"additionalProperties": false,
	}
}
