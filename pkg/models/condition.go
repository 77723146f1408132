// Package models provides condition evaluation for workflow steps.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator is a comparison operator usable in condition steps.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// Evaluate compares the named field from the variable map against the
// configured value. Ordering operators coerce both sides to numbers;
// the rest compare as strings, matching the string-typed variable map.
// A field absent from the map evaluates as an empty string.
func (c ConditionConfig) Evaluate(variables map[string]string) (bool, error) {
	fieldValue := variables[c.Field]

	switch c.Operator {
	case OpEquals:
		return fieldValue == c.Value, nil
	case OpNotEquals:
		return fieldValue != c.Value, nil
	case OpContains:
		return strings.Contains(fieldValue, c.Value), nil
	case OpGreaterThan:
		left, right, err := coerceNumbers(fieldValue, c.Value)
		if err != nil {
			return false, err
		}

		return left > right, nil
	case OpLessThan:
		left, right, err := coerceNumbers(fieldValue, c.Value)
		if err != nil {
			return false, err
		}

		return left < right, nil
	default:
		return false, fmt.Errorf("unknown condition operator %q", c.Operator)
	}
}

func coerceNumbers(left, right string) (float64, float64, error) {
	l, err := strconv.ParseFloat(strings.TrimSpace(left), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot compare %q numerically: %w", left, err)
	}

	r, err := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot compare %q numerically: %w", right, err)
	}

	return l, r, nil
}
