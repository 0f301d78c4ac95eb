package sendemail

import (
	"context"

	"github.com/lensflow/lensflow/pkg/protocol"
)

// ActionFactory creates send_email action instances.
type ActionFactory struct {
	mailer Mailer
}

// NewActionFactory creates a factory backed by the given mailer. A nil mailer
// falls back to log-only delivery.
func NewActionFactory(mailer Mailer) *ActionFactory {
	return &ActionFactory{mailer: mailer}
}

func (f *ActionFactory) Create(_ context.Context, config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.mailer)
}

func (f *ActionFactory) ID() string {
	return "send_email"
}

func (f *ActionFactory) Name() string {
	return "Send Email"
}

func (f *ActionFactory) Description() string {
	return "Sends a templated email to the client associated with the run."
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template": map[string]any{
				"type":        "string",
				"description": "Name of the email template to render.",
				"examples":    []string{"gallery_delivered", "review_request"},
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Optional subject line override.",
			},
			"recipient_field": map[string]any{
				"type":        "string",
				"description": "Run data key holding the recipient address.",
				"default":     "client_email",
			},
		},
		"required":             []string{"template"},
		"additionalProperties": false,
	}
}
