package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lensflow/lensflow/pkg/dispatch"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/persistence"
)

// maxNodesPerBurst caps how many nodes a single burst may visit. Graphs that
// deep are malformed; hitting the cap fails the run instead of spinning.
const maxNodesPerBurst = 100

// Coordinator advances runs through their workflow graph one node at a time.
// A burst executes synchronously until it reaches an end node, runs out of
// edges, fails, or suspends on a delay node.
type Coordinator struct {
	persistence persistence.Persistence
	dispatcher  dispatch.ActionDispatcher
	logger      *slog.Logger
}

// NewCoordinator creates a run coordinator.
func NewCoordinator(p persistence.Persistence, dispatcher dispatch.ActionDispatcher, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		persistence: p,
		dispatcher:  dispatcher,
		logger:      logger.With("module", "coordinator"),
	}
}

// Start executes the first burst of a pending run, beginning at the trigger
// node. The returned error reports infrastructure problems only; domain
// failures mark the run failed and return nil.
func (c *Coordinator) Start(ctx context.Context, run *models.WorkflowRun) error {
	graph, err := c.loadGraph(ctx, run)
	if err != nil {
		return c.failRun(ctx, run, fmt.Sprintf("failed to load workflow graph: %v", err))
	}

	run.MarkRunning()

	if err := c.persistence.RunRepository().UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to persist run start: %w", err)
	}

	// The trigger payload is an immutable seed; actions merge their results
	// into a copy.
	executionCtx := models.ExecutionContext{
		RunID:        run.ID,
		WorkflowID:   run.WorkflowID,
		TriggerEvent: run.TriggerEvent,
		Data:         models.CopyContextData(run.TriggerPayload),
	}

	return c.Advance(ctx, graph, run, graph.TriggerNode().ID, executionCtx)
}

// Resume continues a suspended run past its delay node, seeding the burst
// with the data snapshot captured at suspension time.
func (c *Coordinator) Resume(ctx context.Context, run *models.WorkflowRun, delayNodeID string, data map[string]any) error {
	graph, err := c.loadGraph(ctx, run)
	if err != nil {
		return c.failRun(ctx, run, fmt.Sprintf("failed to load workflow graph: %v", err))
	}

	executionCtx := models.ExecutionContext{
		RunID:        run.ID,
		WorkflowID:   run.WorkflowID,
		TriggerEvent: run.TriggerEvent,
		Data:         models.CopyContextData(data),
	}

	next := graph.OutgoingEdge(delayNodeID, models.EdgeLabelDefault)
	if next == nil {
		return c.finishRun(ctx, run)
	}

	return c.Advance(ctx, graph, run, next.TargetNodeID, executionCtx)
}

// Advance walks the graph from the given node until the burst ends. A node is
// recorded on the execution path only once its work has succeeded and its
// outgoing edge (where one is required) resolved, so the path stops growing
// at the last successfully visited node.
func (c *Coordinator) Advance(ctx context.Context, graph *Graph, run *models.WorkflowRun, nodeID string, executionCtx models.ExecutionContext) error {
	logger := c.logger.With("run_id", run.ID, "workflow_id", run.WorkflowID)

	for visited := 0; ; visited++ {
		if visited >= maxNodesPerBurst {
			return c.failRun(ctx, run, "graph cycle suspected: burst exceeded node limit")
		}

		node, err := graph.Node(nodeID)
		if err != nil {
			return c.failRun(ctx, run, err.Error())
		}

		logger.DebugContext(ctx, "Visiting node", "node_id", node.ID, "node_type", node.Type)

		switch node.Type {
		case models.NodeTypeTrigger:
			// Pass-through: the trigger payload already seeds the context.
			next := graph.OutgoingEdge(node.ID, models.EdgeLabelDefault)
			if next == nil {
				return c.failRun(ctx, run, fmt.Sprintf("malformed graph: trigger node '%s' has no outgoing edge", node.ID))
			}

			if err := c.recordVisit(ctx, run, node.ID); err != nil {
				return err
			}

			nodeID = next.TargetNodeID

		case models.NodeTypeAction:
			result, err := c.dispatcher.Dispatch(ctx, node.ActionType, node.Config, executionCtx)
			if err != nil {
				return c.failRun(ctx, run, err.Error())
			}

			executionCtx.MergeData(result)

			if err := c.recordVisit(ctx, run, node.ID); err != nil {
				return err
			}

			next := graph.OutgoingEdge(node.ID, models.EdgeLabelDefault)
			if next == nil {
				// An action with no default edge terminates the run successfully.
				return c.finishRun(ctx, run)
			}

			nodeID = next.TargetNodeID

		case models.NodeTypeCondition:
			condition, err := node.Condition()
			if err != nil {
				return c.failRun(ctx, run, err.Error())
			}

			label := models.EdgeLabelForResult(condition.Evaluate(executionCtx.Data))

			next := graph.OutgoingEdge(node.ID, label)
			if next == nil {
				return c.failRun(ctx, run, fmt.Sprintf("malformed graph: condition node '%s' has no '%s' branch", node.ID, label))
			}

			if err := c.recordVisit(ctx, run, node.ID); err != nil {
				return err
			}

			nodeID = next.TargetNodeID

		case models.NodeTypeDelay:
			return c.suspend(ctx, run, node, executionCtx)

		case models.NodeTypeEnd:
			if err := c.recordVisit(ctx, run, node.ID); err != nil {
				return err
			}

			return c.finishRun(ctx, run)
		}
	}
}

// recordVisit appends a successfully visited node to the execution path and
// persists the run, so progress survives a crash.
func (c *Coordinator) recordVisit(ctx context.Context, run *models.WorkflowRun, nodeID string) error {
	run.CurrentNodeID = &nodeID
	run.AppendPath(nodeID)

	if err := c.persistence.RunRepository().UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to persist run progress: %w", err)
	}

	return nil
}

// suspend parks the run on a delay node by persisting a scheduled step with
// the current data snapshot. The poller picks it up once it is due. A
// scheduling-persistence failure is fatal to the run.
func (c *Coordinator) suspend(ctx context.Context, run *models.WorkflowRun, node *models.WorkflowNode, executionCtx models.ExecutionContext) error {
	config, err := node.DelayConfig()
	if err != nil {
		return c.failRun(ctx, run, err.Error())
	}

	scheduledFor := time.Now().UTC().Add(config.Duration())
	step := models.NewScheduledStep(run.ID, node.ID, scheduledFor, executionCtx.CloneData())

	if err := c.persistence.StepRepository().CreateStep(ctx, step); err != nil {
		if failErr := c.failRun(ctx, run, fmt.Sprintf("failed to schedule delayed step: %v", err)); failErr != nil {
			c.logger.ErrorContext(ctx, "Failed to record run failure", "run_id", run.ID, "error", failErr)
		}

		return fmt.Errorf("failed to persist scheduled step: %w", err)
	}

	if err := c.recordVisit(ctx, run, node.ID); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Run suspended",
		"run_id", run.ID,
		"node_id", node.ID,
		"scheduled_for", scheduledFor,
	)

	return nil
}

func (c *Coordinator) finishRun(ctx context.Context, run *models.WorkflowRun) error {
	run.MarkSuccess(time.Now().UTC())

	if err := c.persistence.RunRepository().UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to persist run completion: %w", err)
	}

	c.logger.InfoContext(ctx, "Run completed", "run_id", run.ID, "path_length", len(run.ExecutionPath))

	return nil
}

func (c *Coordinator) failRun(ctx context.Context, run *models.WorkflowRun, message string) error {
	run.MarkFailed(time.Now().UTC(), message)

	if err := c.persistence.RunRepository().UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to persist run failure: %w", err)
	}

	c.logger.WarnContext(ctx, "Run failed", "run_id", run.ID, "error", message)

	return nil
}

func (c *Coordinator) loadGraph(ctx context.Context, run *models.WorkflowRun) (*Graph, error) {
	workflow, err := c.persistence.GraphRepository().WorkflowByID(ctx, run.WorkflowID)
	if err != nil {
		return nil, err
	}

	return NewGraph(workflow)
}
