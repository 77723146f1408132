package models

import "time"

// ExecutionStatus is the lifecycle state of a single workflow run.
type ExecutionStatus string

const (
	ExecutionStarted   ExecutionStatus = "started"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// ExecutionContext is the ephemeral state of one run. It is owned
// exclusively by the run that created it and is never persisted beyond
// the execution record.
type ExecutionContext struct {
	ID          string            `json:"id"`
	WorkflowID  string            `json:"workflow_id"`
	TriggerKind TriggerType       `json:"trigger_kind"`
	EntityType  string            `json:"entity_type"`
	EntityID    string            `json:"entity_id"`
	TenantID    string            `json:"tenant_id"`
	Variables   map[string]string `json:"variables,omitempty"`
	TestMode    bool              `json:"test_mode,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
}

// ExecutionRecord is the append-only log row for a run. It is created
// with status started and finalized exactly once.
type ExecutionRecord struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"`
	Status         ExecutionStatus `json:"status"`
	TriggerKind    TriggerType     `json:"trigger_kind"`
	TriggerPayload map[string]any  `json:"trigger_payload,omitempty"`
	TestMode       bool            `json:"test_mode,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}
