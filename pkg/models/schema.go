package models

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Step configuration schemas, keyed by kind. Definitions loaded from
// untrusted sources (files, API payloads) run through these before the
// typed union validation.
var stepSchemas = map[StepKind]string{
	StepMessage: `{
		"type": "object",
		"required": ["channel", "template"],
		"properties": {
			"channel": {"type": "string", "enum": ["sms", "email"]},
			"template": {"type": "string", "minLength": 1},
			"subject": {"type": "string"},
			"delay_minutes": {"type": "integer", "minimum": 0}
		},
		"additionalProperties": false
	}`,
	StepDelay: `{
		"type": "object",
		"required": ["amount", "unit"],
		"properties": {
			"amount": {"type": "integer", "minimum": 1},
			"unit": {"type": "string", "enum": ["seconds", "minutes", "hours", "days"]}
		},
		"additionalProperties": false
	}`,
	StepCondition: `{
		"type": "object",
		"required": ["field", "operator"],
		"properties": {
			"field": {"type": "string", "minLength": 1},
			"operator": {"type": "string", "enum": ["equals", "not_equals", "contains", "greater_than", "less_than"]},
			"value": {"type": "string"}
		},
		"additionalProperties": false
	}`,
	StepNotify: `{
		"type": "object",
		"required": ["template"],
		"properties": {
			"template": {"type": "string", "minLength": 1}
		},
		"additionalProperties": false
	}`,
}

// ValidateStepConfig checks a step's configuration against the JSON Schema
// for its kind.
func ValidateStepConfig(step Step) error {
	schema, ok := stepSchemas[step.Kind]
	if !ok {
		return fmt.Errorf("step %q: unknown step kind %q", step.ID, step.Kind)
	}

	var config any

	switch step.Kind {
	case StepMessage:
		config = step.Message
	case StepDelay:
		config = step.Delay
	case StepCondition:
		config = step.Condition
	case StepNotify:
		config = step.Notify
	}

	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("step %q: marshal configuration: %w", step.ID, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("step %q: schema validation: %w", step.ID, err)
	}

	if !result.Valid() {
		return fmt.Errorf("step %q: invalid %s configuration: %s", step.ID, step.Kind, result.Errors()[0].String())
	}

	return nil
}

// ValidateSteps validates every step configuration of a workflow.
func ValidateSteps(steps []Step) error {
	for _, step := range steps {
		if err := step.validateUnion(); err != nil {
			return err
		}

		if err := ValidateStepConfig(step); err != nil {
			return err
		}
	}

	return nil
}
