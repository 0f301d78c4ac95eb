package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/lensflow/lensflow/pkg/events"
)

// WatermillEventBus implements EventBus on any watermill publisher and
// subscriber pair.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   []TriggerHandler
	logger     *slog.Logger
}

// NewWatermillEventBus creates an event bus on the given channel.
func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
		handlers:   make([]TriggerHandler, 0),
		logger:     logger.With("module", "eventbus"),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

// PublishTrigger validates and publishes an envelope to the trigger topic.
func (eb *WatermillEventBus) PublishTrigger(ctx context.Context, envelope *events.TriggerEnvelope) error {
	if err := envelope.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, envelope.EventID)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(envelope.Event))

	eb.logger.DebugContext(ctx, "Publishing trigger envelope",
		"event_id", envelope.EventID,
		"event", envelope.Event,
	)

	return eb.publisher.Publish(events.Topic, msg)
}

// HandleTriggers registers a handler. Register all handlers before calling
// Subscribe.
func (eb *WatermillEventBus) HandleTriggers(handler TriggerHandler) {
	eb.handlers = append(eb.handlers, handler)
}

// Subscribe starts consuming envelopes in a background goroutine. A handler
// error nacks the message; malformed payloads are dropped with a log line.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			envelope := &events.TriggerEnvelope{}

			if err := json.Unmarshal(msg.Payload, envelope); err != nil {
				eb.logger.ErrorContext(ctx, "Dropping malformed trigger envelope",
					"message_id", msg.UUID,
					"error", err,
				)
				msg.Ack()

				continue
			}

			failed := false

			for _, handler := range eb.handlers {
				if err := handler(ctx, envelope); err != nil {
					eb.logger.ErrorContext(ctx, "Trigger handler failed",
						"event_id", envelope.EventID,
						"event", envelope.Event,
						"error", err,
					)

					failed = true
				}
			}

			if failed {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}
