// Package persistence provides the data storage abstraction for workflow
// graphs, runs and scheduled steps.
package persistence

import (
	"context"
	"time"

	"github.com/lensflow/lensflow/pkg/models"
)

// GraphRepository is read access to workflow graphs, plus the whole-graph
// upsert used by the editor-facing API. Nodes and edges are always written
// together with their workflow so edge endpoints keep their stable node ids.
type GraphRepository interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	ActiveWorkflowsByTrigger(ctx context.Context, event models.TriggerEvent) ([]*models.Workflow, error)
	NodesByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowNode, error)
	EdgesByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow, nodes []*models.WorkflowNode, edges []*models.WorkflowEdge) error
	DeleteWorkflow(ctx context.Context, id string) error
}

// RunRepository persists workflow runs.
type RunRepository interface {
	CreateRun(ctx context.Context, run *models.WorkflowRun) error
	UpdateRun(ctx context.Context, run *models.WorkflowRun) error
	RunByID(ctx context.Context, id string) (*models.WorkflowRun, error)
	RunsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error)
}

// StepRepository persists scheduled steps. ClaimDueSteps must atomically move
// due pending steps to processing so overlapping pollers never hand the same
// suspension to two coordinators.
type StepRepository interface {
	CreateStep(ctx context.Context, step *models.ScheduledStep) error
	StepByID(ctx context.Context, id string) (*models.ScheduledStep, error)
	ClaimDueSteps(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledStep, error)
	MarkStepCompleted(ctx context.Context, id string, processedAt time.Time) error
	MarkStepFailed(ctx context.Context, id string, errorMessage string) error
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Persistence aggregates the engine's repositories behind one connection.
type Persistence interface {
	GraphRepository() GraphRepository
	RunRepository() RunRepository
	StepRepository() StepRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
