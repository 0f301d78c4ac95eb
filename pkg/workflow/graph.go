// Package workflow contains the run coordinator, trigger dispatcher and
// scheduler poller that together execute workflow graphs.
package workflow

import (
	"errors"
	"fmt"

	"github.com/lensflow/lensflow/pkg/models"
)

var (
	ErrNoTriggerNode        = errors.New("workflow has no trigger node")
	ErrMultipleTriggerNodes = errors.New("workflow has more than one trigger node")
)

// Graph is an indexed view over a workflow's nodes and edges. Construction
// validates the structural invariants the coordinator relies on; a Graph that
// exists is safe to walk.
type Graph struct {
	Workflow *models.Workflow
	nodes    map[string]*models.WorkflowNode
	outgoing map[string][]*models.WorkflowEdge
}

// NewGraph indexes and validates a loaded workflow. Edges are expected in
// sort order, which is how the repositories return them.
func NewGraph(workflow *models.Workflow) (*Graph, error) {
	g := &Graph{
		Workflow: workflow,
		nodes:    make(map[string]*models.WorkflowNode, len(workflow.Nodes)),
		outgoing: make(map[string][]*models.WorkflowEdge),
	}

	triggerCount := 0

	for _, node := range workflow.Nodes {
		if _, exists := g.nodes[node.ID]; exists {
			return nil, fmt.Errorf("duplicate node id %q", node.ID)
		}

		g.nodes[node.ID] = node

		if node.Type == models.NodeTypeTrigger {
			triggerCount++
		}
	}

	if triggerCount == 0 {
		return nil, ErrNoTriggerNode
	}

	if triggerCount > 1 {
		return nil, ErrMultipleTriggerNodes
	}

	for _, edge := range workflow.Edges {
		if _, ok := g.nodes[edge.SourceNodeID]; !ok {
			return nil, fmt.Errorf("edge %q references unknown source node %q", edge.ID, edge.SourceNodeID)
		}

		if _, ok := g.nodes[edge.TargetNodeID]; !ok {
			return nil, fmt.Errorf("edge %q references unknown target node %q", edge.ID, edge.TargetNodeID)
		}

		g.outgoing[edge.SourceNodeID] = append(g.outgoing[edge.SourceNodeID], edge)
	}

	return g, nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*models.WorkflowNode, error) {
	node, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %q not found in workflow %s", id, g.Workflow.ID)
	}

	return node, nil
}

// TriggerNode returns the single trigger node of the workflow.
func (g *Graph) TriggerNode() *models.WorkflowNode {
	for _, node := range g.nodes {
		if node.Type == models.NodeTypeTrigger {
			return node
		}
	}

	// Unreachable: construction guarantees exactly one trigger node.
	return nil
}

// OutgoingEdge returns the outgoing edge of a node with the given label, or
// nil when the node has none. Ties resolve to the lowest sort order.
func (g *Graph) OutgoingEdge(nodeID string, label models.EdgeLabel) *models.WorkflowEdge {
	var match *models.WorkflowEdge

	for _, edge := range g.outgoing[nodeID] {
		if edge.Label != label {
			continue
		}

		if match == nil || edge.SortOrder < match.SortOrder {
			match = edge
		}
	}

	return match
}
