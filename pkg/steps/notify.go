package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/template"
)

// executeNotify renders the template and writes an in-app notification.
// No external channel is involved, so no breaker gates the insert.
func (e *Executor) executeNotify(ctx context.Context, step models.Step, execCtx *models.ExecutionContext) error {
	message := template.Render(step.Notify.Template, execCtx.Variables)

	notification := &models.Notification{
		ID:         uuid.New().String(),
		TenantID:   execCtx.TenantID,
		WorkflowID: execCtx.WorkflowID,
		EntityType: execCtx.EntityType,
		EntityID:   execCtx.EntityID,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}

	if err := e.notifications.Insert(ctx, notification); err != nil {
		return fmt.Errorf("step %q: notification insert failed: %w", step.ID, err)
	}

	e.logger.InfoContext(ctx, "Notification created",
		"step_id", step.ID, "notification_id", notification.ID)

	return nil
}
