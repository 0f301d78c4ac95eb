// Package eventbus decouples trigger event producers from the dispatcher.
package eventbus

import (
	"context"

	"github.com/lensflow/lensflow/pkg/events"
)

// TriggerHandler consumes one trigger envelope.
type TriggerHandler func(ctx context.Context, envelope *events.TriggerEnvelope) error

// EventBus carries trigger envelopes between the ingestion surfaces and the
// trigger dispatcher.
type EventBus interface {
	// PublishTrigger validates and publishes an envelope.
	PublishTrigger(ctx context.Context, envelope *events.TriggerEnvelope) error

	// HandleTriggers registers the handler invoked for each envelope.
	HandleTriggers(handler TriggerHandler)

	// Subscribe starts consuming envelopes until the context is cancelled.
	Subscribe(ctx context.Context) error

	// GenerateID produces a unique id for a new envelope.
	GenerateID() string

	Close() error
}
