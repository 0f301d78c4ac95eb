// Package queue provides a Redis list receiver that turns queued platform
// messages into trigger envelopes on the event bus.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/lensflow/lensflow/pkg/eventbus"
	"github.com/lensflow/lensflow/pkg/events"
	"github.com/lensflow/lensflow/pkg/models"
)

const (
	connectTimeout = 5 * time.Second
	popTimeout     = 1 * time.Second
	retryBackoff   = 1 * time.Second
)

var ErrQueueNameRequired = errors.New("queue receiver requires a queue name")

// Config configures the Redis connection and queue to consume.
type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// Receiver consumes messages of the form
// {"event": "...", "payload": {...}} from a Redis list and publishes them as
// trigger envelopes. Messages with an unknown event type are dropped.
type Receiver struct {
	config Config
	bus    eventbus.EventBus
	logger *slog.Logger

	client redis.UniversalClient
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// queueMessage is the wire shape producers push onto the list.
type queueMessage struct {
	Event   models.TriggerEvent `json:"event"`
	Payload map[string]any      `json:"payload"`
}

// NewReceiver creates a queue receiver.
func NewReceiver(config Config, bus eventbus.EventBus, logger *slog.Logger) (*Receiver, error) {
	if config.Queue == "" {
		return nil, ErrQueueNameRequired
	}

	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}

	return &Receiver{
		config: config,
		bus:    bus,
		stopCh: make(chan struct{}),
		logger: logger.With("module", "queue_receiver", "queue", config.Queue),
	}, nil
}

// Start connects to Redis and begins consuming in a background goroutine.
func (r *Receiver) Start(ctx context.Context) error {
	r.client = redis.NewClient(&redis.Options{
		Addr:     r.config.Addr,
		Password: r.config.Password,
		DB:       r.config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r.logger.InfoContext(ctx, "Connected to Redis", "addr", r.config.Addr, "db", r.config.DB)

	r.wg.Add(1)

	go r.consume(ctx)

	return nil
}

// Stop terminates the consumer and closes the connection.
func (r *Receiver) Stop(ctx context.Context) error {
	close(r.stopCh)
	r.wg.Wait()

	if r.client != nil {
		if err := r.client.Close(); err != nil {
			return fmt.Errorf("failed to close Redis client: %w", err)
		}
	}

	r.logger.InfoContext(ctx, "Queue receiver stopped")

	return nil
}

func (r *Receiver) consume(ctx context.Context) {
	defer r.wg.Done()

	r.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		default:
			if err := r.processMessage(ctx); err != nil {
				r.logger.ErrorContext(ctx, "Error processing queue message", "error", err)
				time.Sleep(retryBackoff)
			}
		}
	}
}

func (r *Receiver) processMessage(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, popTimeout, r.config.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	raw := result[1]

	var msg queueMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		r.logger.WarnContext(ctx, "Dropping malformed queue message", "error", err)

		return nil
	}

	envelope := events.NewTriggerEnvelope(r.bus.GenerateID(), msg.Event, msg.Payload)

	if err := r.bus.PublishTrigger(ctx, envelope); err != nil {
		if errors.Is(err, events.ErrUnknownEventType) {
			r.logger.WarnContext(ctx, "Dropping queue message with unknown event", "event", msg.Event)

			return nil
		}

		return fmt.Errorf("failed to publish trigger envelope: %w", err)
	}

	r.logger.InfoContext(ctx, "Queue message dispatched", "event", msg.Event, "event_id", envelope.EventID)

	return nil
}
