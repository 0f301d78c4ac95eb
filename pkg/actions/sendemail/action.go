// Package sendemail provides the email action used by workflow action nodes.
package sendemail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lensflow/lensflow/pkg/models"
)

var ErrTemplateRequired = errors.New("send_email requires a 'template' in configuration")

// Mailer delivers a templated email to a recipient. The production
// implementation talks to the transactional mail provider; tests and local
// development use the logging default.
type Mailer interface {
	Send(ctx context.Context, recipient string, template string, data map[string]any) error
}

// Action sends a templated email to the recipient resolved from the run data.
type Action struct {
	Template  string
	Recipient string
	Subject   string
	mailer    Mailer
}

// NewAction creates a send_email action from node configuration.
func NewAction(config map[string]any, mailer Mailer) (*Action, error) {
	template, _ := config["template"].(string)
	if template == "" {
		return nil, ErrTemplateRequired
	}

	recipient, _ := config["recipient_field"].(string)
	if recipient == "" {
		recipient = "client_email"
	}

	subject, _ := config["subject"].(string)

	if mailer == nil {
		mailer = &logMailer{}
	}

	return &Action{
		Template:  template,
		Recipient: recipient,
		Subject:   subject,
		mailer:    mailer,
	}, nil
}

// Execute resolves the recipient from the execution data and sends the email.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", "send_email", "template", a.Template)

	recipient, _ := executionCtx.Data[a.Recipient].(string)
	if recipient == "" {
		return nil, fmt.Errorf("no recipient found in run data under %q", a.Recipient)
	}

	data := executionCtx.CloneData()
	if a.Subject != "" {
		data["subject"] = a.Subject
	}

	if err := a.mailer.Send(ctx, recipient, a.Template, data); err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoContext(ctx, "Email sent", "recipient", recipient)

	return map[string]any{
		"email_sent":      true,
		"email_recipient": recipient,
		"email_template":  a.Template,
	}, nil
}

// logMailer logs the email instead of delivering it.
type logMailer struct{}

func (m *logMailer) Send(ctx context.Context, recipient string, template string, _ map[string]any) error {
	slog.InfoContext(ctx, "Email delivery (log mailer)", "recipient", recipient, "template", template)

	return nil
}
