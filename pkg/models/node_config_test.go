package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowNode_DelayConfig(t *testing.T) {
	tests := []struct {
		name        string
		node        WorkflowNode
		expected    time.Duration
		expectError bool
	}{
		{
			name: "minutes",
			node: WorkflowNode{
				ID:     "delay-1",
				Type:   NodeTypeDelay,
				Config: map[string]any{"amount": 30, "unit": "minutes"},
			},
			expected: 30 * time.Minute,
		},
		{
			name: "hours",
			node: WorkflowNode{
				ID:     "delay-2",
				Type:   NodeTypeDelay,
				Config: map[string]any{"amount": 2, "unit": "hours"},
			},
			expected: 2 * time.Hour,
		},
		{
			name: "days",
			node: WorkflowNode{
				ID:     "delay-3",
				Type:   NodeTypeDelay,
				Config: map[string]any{"amount": 1, "unit": "days"},
			},
			expected: 24 * time.Hour,
		},
		{
			name: "missing unit",
			node: WorkflowNode{
				ID:     "delay-4",
				Type:   NodeTypeDelay,
				Config: map[string]any{"amount": 1},
			},
			expectError: true,
		},
		{
			name: "unsupported unit",
			node: WorkflowNode{
				ID:     "delay-5",
				Type:   NodeTypeDelay,
				Config: map[string]any{"amount": 1, "unit": "weeks"},
			},
			expectError: true,
		},
		{
			name: "zero amount",
			node: WorkflowNode{
				ID:     "delay-6",
				Type:   NodeTypeDelay,
				Config: map[string]any{"amount": 0, "unit": "hours"},
			},
			expectError: true,
		},
		{
			name: "not a delay node",
			node: WorkflowNode{
				ID:     "action-1",
				Type:   NodeTypeAction,
				Config: map[string]any{"amount": 1, "unit": "hours"},
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.node.DelayConfig()
			if tt.expectError {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Duration())
		})
	}
}

func TestWorkflowNode_Condition(t *testing.T) {
	node := WorkflowNode{
		ID:   "cond-1",
		Type: NodeTypeCondition,
		Config: map[string]any{
			"field":    "selected_count",
			"operator": "greater_than",
			"value":    5,
		},
	}

	cond, err := node.Condition()
	require.NoError(t, err)
	assert.Equal(t, "selected_count", cond.Field)
	assert.Equal(t, OperatorGreaterThan, cond.Operator)

	missing := WorkflowNode{
		ID:     "cond-2",
		Type:   NodeTypeCondition,
		Config: map[string]any{"operator": "equals"},
	}
	_, err = missing.Condition()
	assert.Error(t, err, "condition without a field should not decode")
}

func TestTriggerEvent_IsValid(t *testing.T) {
	assert.True(t, TriggerGalleryCreated.IsValid())
	assert.True(t, TriggerBookingCreated.IsValid())
	assert.False(t, TriggerEvent("gallery_exploded").IsValid())
	assert.False(t, TriggerEvent("").IsValid())
}
