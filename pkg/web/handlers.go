package web

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/lensflow/lensflow/pkg/eventbus"
	"github.com/lensflow/lensflow/pkg/events"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/persistence"
	"github.com/lensflow/lensflow/pkg/workflow"
)

type APIHandlers struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	poller      *workflow.Poller
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	poller *workflow.Poller,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence: p,
		eventBus:    eventBus,
		poller:      poller,
		validator:   validate,
		logger:      logger.With("module", "web"),
	}
}

// IngestEvent accepts a platform event and publishes it for dispatch.
// Ingestion is asynchronous: a 202 means the event is on the bus, not that
// any workflow matched it.
func (h *APIHandlers) IngestEvent(c fiber.Ctx) error {
	var req IngestEventRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	event := models.TriggerEvent(req.Event)
	if !event.IsValid() {
		return badRequest(c, "Unknown event type: "+req.Event)
	}

	envelope := events.NewTriggerEnvelope(h.eventBus.GenerateID(), event, req.Payload)

	if err := h.eventBus.PublishTrigger(c.Context(), envelope); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(IngestEventResponse{
		EventID: envelope.EventID,
	})
}

// TriggerPoll runs one poll cycle synchronously and reports the outcome.
func (h *APIHandlers) TriggerPoll(c fiber.Ctx) error {
	result, err := h.poller.RunOnce(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(result)
}

// GetWorkflows lists all workflows without their graphs.
func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.GraphRepository().Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflows)
}

// GetWorkflow returns a workflow with its nodes and edges.
func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	wf, err := h.persistence.GraphRepository().WorkflowByID(c.Context(), id)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(wf)
}

// SaveWorkflow creates or replaces a workflow graph. The graph is validated
// before it is stored so broken topologies never reach the coordinator.
func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	var req SaveWorkflowRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	wf, nodes, edges := req.toModels()

	if !wf.TriggerEvent.IsValid() {
		return badRequest(c, "Unknown trigger event: "+req.TriggerEvent)
	}

	wf.Nodes = nodes
	wf.Edges = edges

	if _, err := workflow.NewGraph(wf); err != nil {
		return badRequest(c, "Invalid workflow graph: "+err.Error())
	}

	if err := h.persistence.GraphRepository().SaveWorkflow(c.Context(), wf, nodes, edges); err != nil {
		return internalError(c, err)
	}

	h.logger.InfoContext(c.Context(), "Workflow saved", "workflow_id", wf.ID, "name", wf.Name)

	return c.Status(fiber.StatusCreated).JSON(wf)
}

// DeleteWorkflow soft deletes a workflow. Existing runs are untouched.
func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.persistence.GraphRepository().DeleteWorkflow(c.Context(), id); err != nil {
		return handlePersistenceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetWorkflowRuns lists the runs of a workflow, newest first.
func (h *APIHandlers) GetWorkflowRuns(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if _, err := h.persistence.GraphRepository().WorkflowByID(c.Context(), id); err != nil {
		return handlePersistenceError(c, err)
	}

	runs, err := h.persistence.RunRepository().RunsByWorkflow(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(runs)
}

// GetRun returns one run with its execution path.
func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.persistence.RunRepository().RunByID(c.Context(), id)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(run)
}

// HealthCheck reports persistence health.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}
