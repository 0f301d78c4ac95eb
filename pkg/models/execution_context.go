package models

// ExecutionContext is the data handed to actions and conditions during a
// burst: the immutable trigger payload merged with context updates returned
// by earlier actions in the same run.
type ExecutionContext struct {
	RunID        string         `json:"run_id"`
	WorkflowID   string         `json:"workflow_id"`
	TriggerEvent TriggerEvent   `json:"trigger_event"`
	Data         map[string]any `json:"data,omitempty"`
}

// MergeData copies updates into the context data, overwriting existing keys.
func (c *ExecutionContext) MergeData(updates map[string]any) {
	if len(updates) == 0 {
		return
	}

	if c.Data == nil {
		c.Data = make(map[string]any, len(updates))
	}

	for k, v := range updates {
		c.Data[k] = v
	}
}

// CloneData returns a shallow copy of the context data, safe to persist as a
// suspension payload.
func (c *ExecutionContext) CloneData() map[string]any {
	cloned := make(map[string]any, len(c.Data))
	for k, v := range c.Data {
		cloned[k] = v
	}

	return cloned
}

// CopyContextData copies a payload map so a context seeded from it cannot
// write back into the original. A nil map copies to nil.
func CopyContextData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	cloned := make(map[string]any, len(data))
	for k, v := range data {
		cloned[k] = v
	}

	return cloned
}
