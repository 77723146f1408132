package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// StepKind enumerates the closed set of step variants. Decoding a workflow
// with an unknown kind fails up front instead of being skipped at run time.
type StepKind string

const (
	StepMessage   StepKind = "message"
	StepDelay     StepKind = "delay"
	StepCondition StepKind = "condition"
	StepNotify    StepKind = "notify"
)

// MessageChannel selects the outbound channel for a message step.
type MessageChannel string

const (
	ChannelSMS   MessageChannel = "sms"
	ChannelEmail MessageChannel = "email"
)

// DelayUnit is the unit for delay steps and message send delays.
type DelayUnit string

const (
	UnitSeconds DelayUnit = "seconds"
	UnitMinutes DelayUnit = "minutes"
	UnitHours   DelayUnit = "hours"
	UnitDays    DelayUnit = "days"
)

// MessageConfig configures a message step. Template tokens of the form
// {{key}} are substituted from the run's resolved variables.
type MessageConfig struct {
	Channel      MessageChannel `json:"channel"       validate:"required,oneof=sms email"`
	Template     string         `json:"template"      validate:"required"`
	Subject      string         `json:"subject,omitempty"`
	DelayMinutes int            `json:"delay_minutes,omitempty" validate:"gte=0"`
}

// DelayConfig configures a delay step.
type DelayConfig struct {
	Amount int       `json:"amount" validate:"required,gt=0"`
	Unit   DelayUnit `json:"unit"   validate:"required,oneof=seconds minutes hours days"`
}

// Duration converts the configured amount and unit to a time.Duration.
func (d DelayConfig) Duration() time.Duration {
	switch d.Unit {
	case UnitSeconds:
		return time.Duration(d.Amount) * time.Second
	case UnitMinutes:
		return time.Duration(d.Amount) * time.Minute
	case UnitHours:
		return time.Duration(d.Amount) * time.Hour
	case UnitDays:
		return time.Duration(d.Amount) * 24 * time.Hour
	default:
		return 0
	}
}

// ConditionConfig configures a condition step. A false result stops the
// remaining steps of the run.
type ConditionConfig struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required,oneof=equals not_equals contains greater_than less_than"`
	Value    string   `json:"value"`
}

// NotifyConfig configures an internal notification step.
type NotifyConfig struct {
	Template string `json:"template" validate:"required"`
}

// Step is a tagged union: Kind selects which of the config fields is set.
// Exactly one config must be present and it must match Kind.
type Step struct {
	ID        string           `json:"id"`
	Kind      StepKind         `json:"kind" validate:"required"`
	Message   *MessageConfig   `json:"message,omitempty"`
	Delay     *DelayConfig     `json:"delay,omitempty"`
	Condition *ConditionConfig `json:"condition,omitempty"`
	Notify    *NotifyConfig    `json:"notify,omitempty"`
}

type stepAlias Step

// UnmarshalJSON enforces the union invariant at decode time.
func (s *Step) UnmarshalJSON(data []byte) error {
	var alias stepAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	*s = Step(alias)

	return s.validateUnion()
}

func (s *Step) validateUnion() error {
	var want bool

	switch s.Kind {
	case StepMessage:
		want = s.Message != nil && s.Delay == nil && s.Condition == nil && s.Notify == nil
	case StepDelay:
		want = s.Delay != nil && s.Message == nil && s.Condition == nil && s.Notify == nil
	case StepCondition:
		want = s.Condition != nil && s.Message == nil && s.Delay == nil && s.Notify == nil
	case StepNotify:
		want = s.Notify != nil && s.Message == nil && s.Delay == nil && s.Condition == nil
	default:
		return fmt.Errorf("step %q: unknown step kind %q", s.ID, s.Kind)
	}

	if !want {
		return fmt.Errorf("step %q: configuration does not match kind %q", s.ID, s.Kind)
	}

	return nil
}
