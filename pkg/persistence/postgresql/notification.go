package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fieldline/automation/pkg/models"
)

// NotificationRepository stores in-app notifications produced by notify steps.
type NotificationRepository struct {
	db *sql.DB
}

func (r *NotificationRepository) Insert(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (id, tenant_id, workflow_id, entity_type, entity_id, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		notification.ID,
		notification.TenantID,
		notification.WorkflowID,
		notification.EntityType,
		notification.EntityID,
		notification.Message,
		notification.Read,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

func (r *NotificationRepository) Unread(ctx context.Context, tenantID string) ([]*models.Notification, error) {
	query := `
		SELECT id, tenant_id, workflow_id, entity_type, entity_id, message, read, created_at
		FROM notifications
		WHERE tenant_id = $1 AND read = FALSE
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	notifications := make([]*models.Notification, 0)

	for rows.Next() {
		var notification models.Notification

		err := rows.Scan(
			&notification.ID,
			&notification.TenantID,
			&notification.WorkflowID,
			&notification.EntityType,
			&notification.EntityID,
			&notification.Message,
			&notification.Read,
			&notification.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		notifications = append(notifications, &notification)
	}

	return notifications, rows.Err()
}
