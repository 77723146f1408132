// Package events defines the change-feed and run lifecycle events carried
// on the bus.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldline/automation/pkg/models"
)

type EventType string

// Topics.
const ChangeTopic = "fieldline.changes" // entity row-change feed
const RunTopic = "fieldline.runs"       // run requests and run lifecycle

const EventKeyMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Change feed.
	EntityChangedEvent EventType = "entity.changed"

	// Run lifecycle.
	RunRequestedEvent EventType = "run.requested"
	RunStartedEvent   EventType = "run.started"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"
)

// Event is anything publishable on the bus.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// EntityChanged is one row change from the entity store: an insert when
// Old is nil, otherwise an update.
type EntityChanged struct {
	BaseEvent

	Table    string         `json:"table"`
	TenantID string         `json:"tenant_id"`
	EntityID string         `json:"entity_id"`
	Old      map[string]any `json:"old,omitempty"`
	New      map[string]any `json:"new"`
}

func (e EntityChanged) GetType() EventType {
	return EntityChangedEvent
}

// IsInsert reports whether the change created the row.
func (e EntityChanged) IsInsert() bool {
	return e.Old == nil
}

// OldStatus returns the row's status before the change, if any.
func (e EntityChanged) OldStatus() string {
	return stringField(e.Old, "status")
}

// NewStatus returns the row's status after the change, if any.
func (e EntityChanged) NewStatus() string {
	return stringField(e.New, "status")
}

func stringField(row map[string]any, key string) string {
	if row == nil {
		return ""
	}

	value, ok := row[key].(string)
	if !ok {
		return ""
	}

	return value
}

// RunRequested asks a worker to execute one workflow run for one matched
// entity. The listener publishes it and never waits for the outcome.
type RunRequested struct {
	BaseEvent

	TriggerKind    models.TriggerType `json:"trigger_kind"`
	EntityType     string             `json:"entity_type"`
	EntityID       string             `json:"entity_id"`
	TenantID       string             `json:"tenant_id"`
	TriggerPayload map[string]any     `json:"trigger_payload,omitempty"`
	TestMode       bool               `json:"test_mode,omitempty"`
}

func (e RunRequested) GetType() EventType {
	return RunRequestedEvent
}

type RunStarted struct {
	BaseEvent

	ExecutionID string             `json:"execution_id"`
	TriggerKind models.TriggerType `json:"trigger_kind"`
	EntityID    string             `json:"entity_id"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunCompleted struct {
	BaseEvent

	ExecutionID   string        `json:"execution_id"`
	StepsExecuted int           `json:"steps_executed"`
	Duration      time.Duration `json:"duration"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}
