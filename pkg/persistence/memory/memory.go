// Package memory provides an in-memory persistence implementation used by
// tests and local development. All operations are safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/persistence"
)

// Persistence implements persistence.Persistence with in-process maps.
type Persistence struct {
	mu        sync.RWMutex
	workflows map[string]*models.Workflow
	nodes     map[string][]*models.WorkflowNode
	edges     map[string][]*models.WorkflowEdge
	runs      map[string]*models.WorkflowRun
	steps     map[string]*models.ScheduledStep
}

// NewPersistence creates an empty in-memory persistence layer.
func NewPersistence() *Persistence {
	return &Persistence{
		workflows: make(map[string]*models.Workflow),
		nodes:     make(map[string][]*models.WorkflowNode),
		edges:     make(map[string][]*models.WorkflowEdge),
		runs:      make(map[string]*models.WorkflowRun),
		steps:     make(map[string]*models.ScheduledStep),
	}
}

func (p *Persistence) GraphRepository() persistence.GraphRepository {
	return &graphRepository{p}
}

func (p *Persistence) RunRepository() persistence.RunRepository {
	return &runRepository{p}
}

func (p *Persistence) StepRepository() persistence.StepRepository {
	return &stepRepository{p}
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

type graphRepository struct {
	p *Persistence
}

func (r *graphRepository) Workflows(_ context.Context) ([]*models.Workflow, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	workflows := make([]*models.Workflow, 0, len(r.p.workflows))

	for _, wf := range r.p.workflows {
		if wf.DeletedAt == nil {
			workflows = append(workflows, copyWorkflow(wf))
		}
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (r *graphRepository) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	wf, ok := r.p.workflows[id]
	if !ok || wf.DeletedAt != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	cloned := copyWorkflow(wf)
	cloned.Nodes = copyNodes(r.p.nodes[id])
	cloned.Edges = copyEdges(r.p.edges[id])

	return cloned, nil
}

func (r *graphRepository) ActiveWorkflowsByTrigger(_ context.Context, event models.TriggerEvent) ([]*models.Workflow, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	matches := make([]*models.Workflow, 0)

	for _, wf := range r.p.workflows {
		if wf.DeletedAt == nil && wf.IsActive && wf.TriggerEvent == event {
			matches = append(matches, copyWorkflow(wf))
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})

	return matches, nil
}

func (r *graphRepository) NodesByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowNode, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	return copyNodes(r.p.nodes[workflowID]), nil
}

func (r *graphRepository) EdgesByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowEdge, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	return copyEdges(r.p.edges[workflowID]), nil
}

func (r *graphRepository) SaveWorkflow(_ context.Context, workflow *models.Workflow, nodes []*models.WorkflowNode, edges []*models.WorkflowEdge) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	r.p.workflows[workflow.ID] = copyWorkflow(workflow)

	stored := copyNodes(nodes)
	for _, node := range stored {
		node.WorkflowID = workflow.ID
	}

	r.p.nodes[workflow.ID] = stored

	storedEdges := copyEdges(edges)
	for _, edge := range storedEdges {
		if edge.ID == "" {
			edge.ID = uuid.New().String()
		}

		edge.WorkflowID = workflow.ID
	}

	sort.Slice(storedEdges, func(i, j int) bool {
		if storedEdges[i].SortOrder != storedEdges[j].SortOrder {
			return storedEdges[i].SortOrder < storedEdges[j].SortOrder
		}

		return storedEdges[i].ID < storedEdges[j].ID
	})

	r.p.edges[workflow.ID] = storedEdges

	return nil
}

func (r *graphRepository) DeleteWorkflow(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	wf, ok := r.p.workflows[id]
	if !ok || wf.DeletedAt != nil {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	now := time.Now().UTC()
	wf.DeletedAt = &now

	return nil
}

type runRepository struct {
	p *Persistence
}

func (r *runRepository) CreateRun(_ context.Context, run *models.WorkflowRun) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.runs[run.ID] = copyRun(run)

	return nil
}

func (r *runRepository) UpdateRun(_ context.Context, run *models.WorkflowRun) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if _, ok := r.p.runs[run.ID]; !ok {
		return persistence.NewRunError("Update", run.ID, persistence.ErrRunNotFound)
	}

	r.p.runs[run.ID] = copyRun(run)

	return nil
}

func (r *runRepository) RunByID(_ context.Context, id string) (*models.WorkflowRun, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	run, ok := r.p.runs[id]
	if !ok {
		return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
	}

	return copyRun(run), nil
}

func (r *runRepository) RunsByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	runs := make([]*models.WorkflowRun, 0)

	for _, run := range r.p.runs {
		if run.WorkflowID == workflowID {
			runs = append(runs, copyRun(run))
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	return runs, nil
}

type stepRepository struct {
	p *Persistence
}

func (r *stepRepository) CreateStep(_ context.Context, step *models.ScheduledStep) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	r.p.steps[step.ID] = copyStep(step)

	return nil
}

func (r *stepRepository) StepByID(_ context.Context, id string) (*models.ScheduledStep, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	step, ok := r.p.steps[id]
	if !ok {
		return nil, persistence.ErrStepNotFound
	}

	return copyStep(step), nil
}

// ClaimDueSteps mirrors the SKIP LOCKED claim of the postgres store: the
// pending -> processing transition happens under one lock, so overlapping
// pollers cannot claim the same step twice.
func (r *stepRepository) ClaimDueSteps(_ context.Context, now time.Time, limit int) ([]*models.ScheduledStep, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	due := make([]*models.ScheduledStep, 0)

	for _, step := range r.p.steps {
		if step.Status == models.StepStatusPending && !step.ScheduledFor.After(now) {
			due = append(due, step)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledFor.Before(due[j].ScheduledFor)
	})

	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*models.ScheduledStep, 0, len(due))

	for _, step := range due {
		step.Status = models.StepStatusProcessing
		claimed = append(claimed, copyStep(step))
	}

	return claimed, nil
}

func (r *stepRepository) MarkStepCompleted(_ context.Context, id string, processedAt time.Time) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	step, ok := r.p.steps[id]
	if !ok || step.Status != models.StepStatusProcessing {
		return persistence.ErrStepNotClaimable
	}

	step.Status = models.StepStatusCompleted
	step.ProcessedAt = &processedAt

	return nil
}

func (r *stepRepository) MarkStepFailed(_ context.Context, id string, errorMessage string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	step, ok := r.p.steps[id]
	if !ok || step.Status != models.StepStatusProcessing {
		return persistence.ErrStepNotClaimable
	}

	now := time.Now().UTC()
	step.Status = models.StepStatusFailed
	step.ErrorMessage = errorMessage
	step.ProcessedAt = &now

	return nil
}

func (r *stepRepository) DeleteCompletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	var deleted int64

	for id, step := range r.p.steps {
		if step.Status == models.StepStatusCompleted && step.ProcessedAt != nil && step.ProcessedAt.Before(cutoff) {
			delete(r.p.steps, id)
			deleted++
		}
	}

	return deleted, nil
}

func copyWorkflow(wf *models.Workflow) *models.Workflow {
	cloned := *wf
	cloned.Nodes = nil
	cloned.Edges = nil

	return &cloned
}

func copyNodes(nodes []*models.WorkflowNode) []*models.WorkflowNode {
	cloned := make([]*models.WorkflowNode, 0, len(nodes))

	for _, node := range nodes {
		n := *node
		n.Config = models.CopyContextData(node.Config)
		cloned = append(cloned, &n)
	}

	return cloned
}

func copyEdges(edges []*models.WorkflowEdge) []*models.WorkflowEdge {
	cloned := make([]*models.WorkflowEdge, 0, len(edges))

	for _, edge := range edges {
		e := *edge
		cloned = append(cloned, &e)
	}

	return cloned
}

func copyRun(run *models.WorkflowRun) *models.WorkflowRun {
	cloned := *run
	cloned.ExecutionPath = append([]string(nil), run.ExecutionPath...)
	cloned.TriggerPayload = models.CopyContextData(run.TriggerPayload)

	if run.CurrentNodeID != nil {
		nodeID := *run.CurrentNodeID
		cloned.CurrentNodeID = &nodeID
	}

	return &cloned
}

func copyStep(step *models.ScheduledStep) *models.ScheduledStep {
	cloned := *step
	cloned.Payload = models.CopyContextData(step.Payload)

	return &cloned
}
