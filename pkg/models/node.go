package models

// NodeType discriminates the execution behavior of a workflow node.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeAction    NodeType = "action"
	NodeTypeDelay     NodeType = "delay"
	NodeTypeCondition NodeType = "condition"
	NodeTypeEnd       NodeType = "end"
)

// ActionType names a side-effecting action executed by the dispatcher.
type ActionType string

const (
	ActionSendEmail           ActionType = "send_email"
	ActionSendWebhook         ActionType = "send_webhook"
	ActionCreateCalendarEvent ActionType = "create_calendar_event"
	ActionCreateGallery       ActionType = "create_gallery"
	ActionUpdateGalleryStatus ActionType = "update_gallery_status"
	ActionNotifyAdmin         ActionType = "notify_admin"
)

// WorkflowNode is one vertex of a workflow graph. Config is the raw
// node-type-specific configuration as persisted; use DelayConfig and
// Condition to obtain the decoded, validated view.
type WorkflowNode struct {
	WorkflowID string         `json:"workflow_id"`
	ID         string         `json:"id"        validate:"required"`
	Type       NodeType       `json:"node_type" validate:"required,oneof=trigger action delay condition end"`
	ActionType ActionType     `json:"action_type,omitempty"`
	Config     map[string]any `json:"node_config,omitempty"`
	// Canvas position, kept for editor fidelity. Irrelevant to execution.
	PositionX int `json:"position_x"`
	PositionY int `json:"position_y"`
}

func (n *WorkflowNode) IsTerminal() bool {
	return n.Type == NodeTypeEnd
}
