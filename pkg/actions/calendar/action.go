// Package calendar provides the calendar event action used for booking
// follow-ups.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lensflow/lensflow/pkg/models"
)

var ErrTitleRequired = errors.New("create_calendar_event requires a 'title' in configuration")

// Event is a calendar entry created on behalf of the studio.
type Event struct {
	Title       string
	Description string
	StartsAt    time.Time
	Attendee    string
}

// Client creates events in the studio calendar.
type Client interface {
	CreateEvent(ctx context.Context, event Event) (string, error)
}

// Action creates a calendar event based on run data. The start time comes
// from the run data when present and falls back to the time of execution.
type Action struct {
	Title         string
	Description   string
	StartsAtField string
	client        Client
}

// NewAction creates a create_calendar_event action from node configuration.
func NewAction(config map[string]any, client Client) (*Action, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, ErrTitleRequired
	}

	description, _ := config["description"].(string)

	startsAtField, _ := config["starts_at_field"].(string)
	if startsAtField == "" {
		startsAtField = "booking_starts_at"
	}

	if client == nil {
		client = &logClient{}
	}

	return &Action{
		Title:         title,
		Description:   description,
		StartsAtField: startsAtField,
		client:        client,
	}, nil
}

// Execute creates the calendar event.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", "create_calendar_event", "title", a.Title)

	startsAt := time.Now().UTC()

	if raw, ok := executionCtx.Data[a.StartsAtField].(string); ok && raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %q in run data: %w", a.StartsAtField, err)
		}

		startsAt = parsed
	}

	attendee, _ := executionCtx.Data["client_email"].(string)

	eventID, err := a.client.CreateEvent(ctx, Event{
		Title:       a.Title,
		Description: a.Description,
		StartsAt:    startsAt,
		Attendee:    attendee,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar event: %w", err)
	}

	logger.InfoContext(ctx, "Calendar event created", "event_id", eventID)

	return map[string]any{
		"calendar_event_id": eventID,
	}, nil
}

// logClient logs the event instead of creating it.
type logClient struct{}

func (c *logClient) CreateEvent(ctx context.Context, event Event) (string, error) {
	slog.InfoContext(ctx, "Calendar event (log client)", "title", event.Title, "starts_at", event.StartsAt)

	return "log-" + event.StartsAt.Format("20060102T150405"), nil
}
