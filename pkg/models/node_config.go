package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// DelayUnit is the time unit of a delay node configuration.
type DelayUnit string

const (
	DelayUnitMinutes DelayUnit = "minutes"
	DelayUnitHours   DelayUnit = "hours"
	DelayUnitDays    DelayUnit = "days"
)

// DelayConfig is the decoded configuration of a delay node.
type DelayConfig struct {
	Amount int       `json:"amount" validate:"required,gt=0"`
	Unit   DelayUnit `json:"unit"   validate:"required,oneof=minutes hours days"`
}

// Duration converts the configured amount and unit to a time.Duration.
func (c DelayConfig) Duration() time.Duration {
	switch c.Unit {
	case DelayUnitMinutes:
		return time.Duration(c.Amount) * time.Minute
	case DelayUnitHours:
		return time.Duration(c.Amount) * time.Hour
	case DelayUnitDays:
		return time.Duration(c.Amount) * 24 * time.Hour
	default:
		return 0
	}
}

// decodeNodeConfig round-trips a raw config map through JSON into a typed
// view and validates it, so each config is parsed and checked once.
func decodeNodeConfig(config map[string]any, out any) error {
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode node config: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode node config: %w", err)
	}

	return configValidator.Struct(out)
}

// DelayConfig decodes the node's configuration as a delay configuration.
func (n *WorkflowNode) DelayConfig() (*DelayConfig, error) {
	if n.Type != NodeTypeDelay {
		return nil, fmt.Errorf("node %s is %s, not a delay node", n.ID, n.Type)
	}

	cfg := &DelayConfig{}
	if err := decodeNodeConfig(n.Config, cfg); err != nil {
		return nil, fmt.Errorf("invalid delay config for node %s: %w", n.ID, err)
	}

	return cfg, nil
}

// Condition decodes the node's configuration as a branching condition.
func (n *WorkflowNode) Condition() (*Condition, error) {
	if n.Type != NodeTypeCondition {
		return nil, fmt.Errorf("node %s is %s, not a condition node", n.ID, n.Type)
	}

	cond := &Condition{}
	if err := decodeNodeConfig(n.Config, cond); err != nil {
		return nil, fmt.Errorf("invalid condition config for node %s: %w", n.ID, err)
	}

	return cond, nil
}
