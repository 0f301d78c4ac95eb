package models

// EdgeLabel selects which outgoing edge a node follows.
type EdgeLabel string

const (
	EdgeLabelDefault EdgeLabel = "default"
	EdgeLabelTrue    EdgeLabel = "true"
	EdgeLabelFalse   EdgeLabel = "false"
)

// EdgeLabelForResult maps a condition result to its branch label.
func EdgeLabelForResult(result bool) EdgeLabel {
	if result {
		return EdgeLabelTrue
	}

	return EdgeLabelFalse
}

// WorkflowEdge is a directed edge between two nodes of the same workflow.
// When multiple edges share a label, the lowest SortOrder wins.
type WorkflowEdge struct {
	WorkflowID   string    `json:"workflow_id"`
	ID           string    `json:"id"             validate:"required"`
	SourceNodeID string    `json:"source_node_id" validate:"required"`
	TargetNodeID string    `json:"target_node_id" validate:"required"`
	Label        EdgeLabel `json:"edge_label"     validate:"required,oneof=default true false"`
	SortOrder    int       `json:"sort_order"`
}
