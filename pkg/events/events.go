// Package events defines the envelope that carries platform trigger events
// from ingestion to the trigger dispatcher.
package events

import (
	"errors"
	"time"

	"github.com/lensflow/lensflow/pkg/models"
)

// Topic is the event bus topic trigger envelopes travel on.
const Topic = "lensflow.trigger-events"

// Metadata keys set on published messages.
const (
	EventMetadataKey     = "event_id"
	EventTypeMetadataKey = "event_type"
)

var (
	ErrEventIDRequired  = errors.New("trigger envelope requires an event id")
	ErrUnknownEventType = errors.New("trigger envelope has an unknown event type")
)

// TriggerEnvelope wraps one platform occurrence (a gallery was delivered, a
// booking was confirmed) on its way to workflow matching. The payload is
// opaque to the bus and becomes the run's trigger payload.
type TriggerEnvelope struct {
	EventID    string              `json:"event_id"`
	Event      models.TriggerEvent `json:"event"`
	Payload    map[string]any      `json:"payload,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// NewTriggerEnvelope stamps a payload with the event type and current time.
// The caller supplies the id so it can be returned to the event producer.
func NewTriggerEnvelope(eventID string, event models.TriggerEvent, payload map[string]any) *TriggerEnvelope {
	return &TriggerEnvelope{
		EventID:    eventID,
		Event:      event,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Validate checks the envelope is complete enough to dispatch.
func (e *TriggerEnvelope) Validate() error {
	if e.EventID == "" {
		return ErrEventIDRequired
	}

	if !e.Event.IsValid() {
		return ErrUnknownEventType
	}

	return nil
}
