package main

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"

	"github.com/lensflow/lensflow/pkg/cmd"
	"github.com/lensflow/lensflow/pkg/dispatch"
	"github.com/lensflow/lensflow/pkg/log"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/workflow"
)

// queueMessage mirrors the wire shape the queue receiver consumes.
type queueMessage struct {
	Event   models.TriggerEvent `json:"event"`
	Payload map[string]any      `json:"payload"`
}

func parseEvent(command *cli.Command) (models.TriggerEvent, map[string]any, error) {
	event := models.TriggerEvent(command.String("event"))
	if !event.IsValid() {
		return "", nil, fmt.Errorf("unknown trigger event %q, run 'lensflow-trigger list' for the catalog", command.String("event"))
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(command.String("payload")), &payload); err != nil {
		return "", nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}

	return event, payload, nil
}

// SendEvent pushes a trigger event onto the Redis list consumed by the
// engine's queue receiver.
func SendEvent(ctx context.Context, command *cli.Command) error {
	event, payload, err := parseEvent(command)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(queueMessage{Event: event, Payload: payload})
	if err != nil {
		return err
	}

	client := redis.NewClient(&redis.Options{Addr: command.String("queue-addr")})
	defer func() {
		_ = client.Close()
	}()

	queueName := command.String("queue-name")

	if err := client.RPush(ctx, queueName, raw).Err(); err != nil {
		return fmt.Errorf("failed to enqueue event: %w", err)
	}

	fmt.Printf("Queued %s onto %s\n", event, queueName)

	return nil
}

// DispatchEvent matches the event against active workflows and runs them
// in-process, printing the run IDs it created.
func DispatchEvent(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("trigger")

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	event, payload, err := parseEvent(command)
	if err != nil {
		return err
	}

	registry := cmd.NewRegistry(logger)
	coordinator := workflow.NewCoordinator(persistence, dispatch.NewDispatcher(registry, logger), logger)
	dispatcher := workflow.NewTriggerDispatcher(persistence, coordinator, logger)

	runs, err := dispatcher.Dispatch(ctx, event, payload)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Printf("No active workflows subscribe to %s\n", event)

		return nil
	}

	for _, run := range runs {
		fmt.Printf("%s\tworkflow=%s\tstatus=%s\n", run.ID, run.WorkflowID, run.Status)
	}

	return nil
}

// ListEvents prints the trigger event catalog.
func ListEvents(_ *cli.Command) error {
	for _, event := range models.KnownTriggerEvents() {
		fmt.Println(event)
	}

	return nil
}
