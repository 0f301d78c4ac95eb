// Package models provides condition evaluation for workflow branching.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionOperator is one of the fixed predicate kinds usable at a
// condition node.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorNotContains ConditionOperator = "not_contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorIsEmpty     ConditionOperator = "is_empty"
	OperatorIsNotEmpty  ConditionOperator = "is_not_empty"
	OperatorIsTrue      ConditionOperator = "is_true"
	OperatorIsFalse     ConditionOperator = "is_false"
)

// Condition is the decoded configuration of a condition node: a flat field
// lookup against the run context combined with a predicate.
type Condition struct {
	Field    string            `json:"field"    validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required"`
	Value    any               `json:"value"`
}

// Evaluate applies the condition against the run context. It is pure and
// never errors: a predicate that cannot be decided evaluates to false, so a
// malformed condition cannot silently take the true branch.
func (c Condition) Evaluate(data map[string]any) bool {
	value := data[c.Field]

	switch c.Operator {
	case OperatorEquals:
		return looseEquals(value, c.Value)
	case OperatorNotEquals:
		return !looseEquals(value, c.Value)
	case OperatorContains:
		return containsValue(value, c.Value)
	case OperatorNotContains:
		return !containsValue(value, c.Value)
	case OperatorGreaterThan:
		got, okGot := toFloat(value)
		want, okWant := toFloat(c.Value)

		return okGot && okWant && got > want
	case OperatorLessThan:
		got, okGot := toFloat(value)
		want, okWant := toFloat(c.Value)

		return okGot && okWant && got < want
	case OperatorIsEmpty:
		return isEmpty(value)
	case OperatorIsNotEmpty:
		return !isEmpty(value)
	case OperatorIsTrue:
		return truthy(value)
	case OperatorIsFalse:
		return !truthy(value)
	default:
		// Unknown operators fail closed.
		return false
	}
}

// looseEquals compares the context value against the condition literal,
// coercing the context value to the literal's type.
func looseEquals(got, want any) bool {
	switch w := want.(type) {
	case nil:
		return got == nil
	case bool:
		return truthy(got) == w
	case string:
		return fmt.Sprintf("%v", got) == w
	default:
		wantNum, okWant := toFloat(want)
		if okWant {
			gotNum, okGot := toFloat(got)

			return okGot && gotNum == wantNum
		}

		return fmt.Sprintf("%v", got) == fmt.Sprintf("%v", want)
	}
}

// containsValue tests substring containment for strings and membership for
// arrays. Any other context value type is not containable.
func containsValue(got, want any) bool {
	switch g := got.(type) {
	case string:
		return strings.Contains(g, fmt.Sprintf("%v", want))
	case []any:
		for _, item := range g {
			if looseEquals(item, want) {
				return true
			}
		}

		return false
	case []string:
		needle := fmt.Sprintf("%v", want)
		for _, item := range g {
			if item == needle {
				return true
			}
		}

		return false
	default:
		return false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)

		return parsed, err == nil
	default:
		return 0, false
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}

		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case nil:
		return false
	default:
		return false
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
