// Package main provides the lensflow API server: event ingestion, workflow
// management and run inspection.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/lensflow/lensflow/pkg/dispatch"
	"github.com/lensflow/lensflow/pkg/eventbus"
	"github.com/lensflow/lensflow/pkg/events"
	"github.com/lensflow/lensflow/pkg/persistence"
	"github.com/lensflow/lensflow/pkg/registry"
	"github.com/lensflow/lensflow/pkg/web"
	"github.com/lensflow/lensflow/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
	poller      *workflow.Poller
	dispatcher  *workflow.TriggerDispatcher
}

func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
) *API {
	actionDispatcher := dispatch.NewDispatcher(reg, logger)
	coordinator := workflow.NewCoordinator(p, actionDispatcher, logger)

	return &API{
		logger:      logger,
		persistence: p,
		registry:    reg,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		poller:      workflow.NewPoller(p, coordinator, logger),
		dispatcher:  workflow.NewTriggerDispatcher(p, coordinator, logger),
	}
}

// SubscribeDispatcher connects the trigger dispatcher to the event bus so
// ingested events create runs.
func (a *API) SubscribeDispatcher(ctx context.Context) error {
	a.eventBus.HandleTriggers(func(ctx context.Context, envelope *events.TriggerEnvelope) error {
		runs, err := a.dispatcher.Dispatch(ctx, envelope.Event, envelope.Payload)
		if err != nil {
			return err
		}

		a.logger.InfoContext(ctx, "Trigger envelope processed",
			"event_id", envelope.EventID,
			"event", envelope.Event,
			"runs_created", len(runs),
		)

		return nil
	})

	return a.eventBus.Subscribe(ctx)
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.persistence, a.eventBus, a.poller, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Lensflow API")
	})

	app.Post("/events", handlers.IngestEvent)
	app.Post("/scheduler/poll", handlers.TriggerPoll)
	app.Get("/runs/:id", handlers.GetRun)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.SaveWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Get("/:id/runs", handlers.GetWorkflowRuns)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
