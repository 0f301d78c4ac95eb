// Package web provides the HTTP surface of the workflow engine: event
// ingestion, workflow inspection and the manual poll endpoint.
package web

import "github.com/lensflow/lensflow/pkg/models"

// IngestEventRequest is the body of POST /events.
type IngestEventRequest struct {
	Event   string         `json:"event"   validate:"required"`
	Payload map[string]any `json:"payload"`
}

// IngestEventResponse acknowledges an accepted event.
type IngestEventResponse struct {
	EventID     string `json:"event_id"`
	RunsMatched int    `json:"runs_matched,omitempty"`
}

// NodeRequest is one node of a workflow graph being saved.
type NodeRequest struct {
	ID         string         `json:"id"          validate:"required"`
	Type       string         `json:"node_type"   validate:"required,oneof=trigger action delay condition end"`
	ActionType string         `json:"action_type,omitempty"`
	Config     map[string]any `json:"node_config,omitempty"`
	PositionX  int            `json:"position_x"`
	PositionY  int            `json:"position_y"`
}

// EdgeRequest is one edge of a workflow graph being saved.
type EdgeRequest struct {
	ID           string `json:"id,omitempty"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	Label        string `json:"edge_label"     validate:"omitempty,oneof=default true false"`
	SortOrder    int    `json:"sort_order"`
}

// SaveWorkflowRequest is the body of POST /workflows. It carries the whole
// graph; saving replaces the stored node and edge set.
type SaveWorkflowRequest struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name"          validate:"required,min=3"`
	TriggerEvent string        `json:"trigger_event" validate:"required"`
	IsActive     bool          `json:"is_active"`
	Nodes        []NodeRequest `json:"nodes"         validate:"required,min=1,dive"`
	Edges        []EdgeRequest `json:"edges"         validate:"dive"`
}

func (r *SaveWorkflowRequest) toModels() (*models.Workflow, []*models.WorkflowNode, []*models.WorkflowEdge) {
	workflow := &models.Workflow{
		ID:           r.ID,
		Name:         r.Name,
		TriggerEvent: models.TriggerEvent(r.TriggerEvent),
		IsActive:     r.IsActive,
	}

	nodes := make([]*models.WorkflowNode, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		nodes = append(nodes, &models.WorkflowNode{
			ID:         n.ID,
			Type:       models.NodeType(n.Type),
			ActionType: models.ActionType(n.ActionType),
			Config:     n.Config,
			PositionX:  n.PositionX,
			PositionY:  n.PositionY,
		})
	}

	edges := make([]*models.WorkflowEdge, 0, len(r.Edges))
	for _, e := range r.Edges {
		label := models.EdgeLabel(e.Label)
		if label == "" {
			label = models.EdgeLabelDefault
		}

		edges = append(edges, &models.WorkflowEdge{
			ID:           e.ID,
			SourceNodeID: e.SourceNodeID,
			TargetNodeID: e.TargetNodeID,
			Label:        label,
			SortOrder:    e.SortOrder,
		})
	}

	return workflow, nodes, edges
}
