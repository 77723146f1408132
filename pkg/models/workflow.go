// Package models defines the core domain models for the automation engine.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusActive WorkflowStatus = "active"
	WorkflowStatusPaused WorkflowStatus = "paused"
)

// TriggerType identifies the entity change that starts a workflow.
type TriggerType string

const (
	TriggerStatusChange    TriggerType = "status_change"
	TriggerEntityCreated   TriggerType = "entity_created"
	TriggerPaymentReceived TriggerType = "payment_received"
	TriggerAppointmentDue  TriggerType = "appointment_due"
)

// TriggerConditions narrows which change events fire a workflow.
// Empty fields act as wildcards.
type TriggerConditions struct {
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status,omitempty"`
	EntityType string `json:"entity_type,omitempty"`
}

// Workflow is a stored automation definition: a trigger plus an ordered
// list of steps. The engine treats it as read-only; only the run counters
// and LastExecutedAt are updated after a run.
type Workflow struct {
	ID                string            `json:"id"`
	TenantID          string            `json:"tenant_id"              validate:"required"`
	Name              string            `json:"name"                   validate:"required,min=3"`
	Description       string            `json:"description,omitempty"`
	Status            WorkflowStatus    `json:"status"                 validate:"required,oneof=active paused"`
	TriggerType       TriggerType       `json:"trigger_type"           validate:"required,oneof=status_change entity_created payment_received appointment_due"`
	TriggerConditions TriggerConditions `json:"trigger_conditions"`
	Steps             []Step            `json:"steps"                  validate:"dive"`
	ExecutionCount    int64             `json:"execution_count"`
	SuccessCount      int64             `json:"success_count"`
	LastExecutedAt    *time.Time        `json:"last_executed_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IsActive reports whether the engine should consider this workflow for
// trigger matching.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}
