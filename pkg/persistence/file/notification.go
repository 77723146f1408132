package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fieldline/automation/pkg/models"
)

// NotificationRepository stores internal notifications as JSON files.
type NotificationRepository struct {
	dir string
	mu  sync.Mutex
}

func NewNotificationRepository(root string) *NotificationRepository {
	return &NotificationRepository{dir: filepath.Join(root, "notifications")}
}

func (r *NotificationRepository) Insert(_ context.Context, notification *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.dir, notification.ID, notification)
}

func (r *NotificationRepository) Unread(_ context.Context, tenantID string) ([]*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := listIDs(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.Notification{}, nil
		}

		return nil, err
	}

	notifications := make([]*models.Notification, 0)

	for _, id := range ids {
		var notification models.Notification
		if err := readDocument(r.dir, id, &notification); err != nil {
			return nil, err
		}

		if notification.Read {
			continue
		}

		if tenantID != "" && notification.TenantID != tenantID {
			continue
		}

		notifications = append(notifications, &notification)
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})

	return notifications, nil
}
