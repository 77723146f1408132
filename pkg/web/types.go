package web

import (
	"time"

	"github.com/fieldline/automation/pkg/models"
)

// ExecuteWorkflowRequest targets a run at one entity.
type ExecuteWorkflowRequest struct {
	EntityType string `json:"entity_type" validate:"required,oneof=jobs clients invoices"`
	EntityID   string `json:"entity_id"   validate:"required"`
}

// TestWorkflowRequest carries sample variables for a test run.
type TestWorkflowRequest struct {
	Variables map[string]string `json:"variables"`
}

// UpdateWorkflowStatusRequest pauses or activates a workflow.
type UpdateWorkflowStatusRequest struct {
	Status models.WorkflowStatus `json:"status" validate:"required,oneof=active paused"`
}

// RunResponse reports the outcome of a synchronous run.
type RunResponse struct {
	ExecutionID   string                 `json:"execution_id"`
	Status        models.ExecutionStatus `json:"status"`
	StepsExecuted int                    `json:"steps_executed"`
	DurationMS    int64                  `json:"duration_ms"`
}

// HealthResponse reports component health for the health endpoint.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}
