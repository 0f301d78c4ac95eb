package registry

import (
	"log/slog"

	"github.com/lensflow/lensflow/pkg/actions/calendar"
	"github.com/lensflow/lensflow/pkg/actions/gallery"
	"github.com/lensflow/lensflow/pkg/actions/notify"
	"github.com/lensflow/lensflow/pkg/actions/sendemail"
	"github.com/lensflow/lensflow/pkg/actions/sendwebhook"
)

// Services holds the external integrations the built-in actions depend on.
// Nil fields fall back to log-only implementations, which keeps local
// development and tests free of external calls.
type Services struct {
	Mailer   sendemail.Mailer
	Calendar calendar.Client
	Gallery  gallery.Service
}

// NewDefaultRegistry builds a registry with every built-in action registered.
func NewDefaultRegistry(logger *slog.Logger, services Services) *Registry {
	r := NewRegistry(logger)

	r.RegisterAction(sendemail.NewActionFactory(services.Mailer))
	r.RegisterAction(sendwebhook.NewActionFactory())
	r.RegisterAction(calendar.NewActionFactory(services.Calendar))
	r.RegisterAction(gallery.NewCreateActionFactory(services.Gallery))
	r.RegisterAction(gallery.NewUpdateStatusActionFactory(services.Gallery))
	r.RegisterAction(notify.NewActionFactory())

	return r
}
