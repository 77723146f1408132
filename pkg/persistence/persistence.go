// Package persistence provides the storage abstraction for workflows, the
// execution log, business entities, and notifications.
package persistence

import (
	"context"
	"time"

	"github.com/fieldline/automation/pkg/models"
)

// Persistence bundles the repositories one store implementation provides.
type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionLogRepository
	Entities() EntityRepository
	Notifications() NotificationRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions. The engine only reads
// definitions and records run outcomes; authoring happens elsewhere.
type WorkflowRepository interface {
	All(ctx context.Context, tenantID string) ([]*models.Workflow, error)
	Active(ctx context.Context, tenantID string) ([]*models.Workflow, error)
	ByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error

	// RecordRun bumps the run counters after a run. Implementations must
	// update atomically (or last-writer-wins) so concurrent runs for the
	// same workflow do not lose updates.
	RecordRun(ctx context.Context, id string, succeeded bool, executedAt time.Time) error
}

// ExecutionLogRepository is the append-only run log. Records are appended
// with status started and finalized exactly once.
type ExecutionLogRepository interface {
	Append(ctx context.Context, record *models.ExecutionRecord) error
	Finalize(ctx context.Context, id string, status models.ExecutionStatus, errorMessage string, completedAt time.Time) error
	ByID(ctx context.Context, id string) (*models.ExecutionRecord, error)
	ByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionRecord, error)
}

// EntityRepository reads business entities for variable resolution. It is
// strictly read-only from the engine's perspective.
type EntityRepository interface {
	JobByID(ctx context.Context, tenantID, id string) (*models.Job, error)
	ClientByID(ctx context.Context, tenantID, id string) (*models.Client, error)
	InvoiceByID(ctx context.Context, tenantID, id string) (*models.Invoice, error)

	// JobsScheduledBetween lists jobs whose appointment falls inside the
	// window, used by the appointment reminder source.
	JobsScheduledBetween(ctx context.Context, tenantID string, from, to time.Time) ([]*models.Job, error)
}

// NotificationRepository is the sink for notify steps.
type NotificationRepository interface {
	Insert(ctx context.Context, notification *models.Notification) error
	Unread(ctx context.Context, tenantID string) ([]*models.Notification, error)
}
