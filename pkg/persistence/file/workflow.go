package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// WorkflowRepository stores workflow definitions as JSON files.
type WorkflowRepository struct {
	dir string

	// mu serializes read-modify-write cycles (counter updates).
	mu sync.Mutex
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{dir: filepath.Join(root, "workflows")}
}

func (r *WorkflowRepository) All(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	ids, err := listIDs(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.Workflow{}, nil
		}

		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := r.ByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		if tenantID != "" && workflow.TenantID != tenantID {
			continue
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (r *WorkflowRepository) Active(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	all, err := r.All(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if workflow.IsActive() {
			active = append(active, workflow)
		}
	}

	return active, nil
}

func (r *WorkflowRepository) ByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := readDocument(r.dir, id, &workflow)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, err
	}

	return &workflow, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.dir, workflow.ID, workflow)
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.ByID(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return os.Remove(filepath.Join(r.dir, id+".json"))
}

// RecordRun bumps the counters under the repository lock, so two runs
// finishing together do not lose an update.
func (r *WorkflowRepository) RecordRun(ctx context.Context, id string, succeeded bool, executedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, err := r.ByID(ctx, id)
	if err != nil {
		return err
	}

	workflow.ExecutionCount++
	if succeeded {
		workflow.SuccessCount++
	}

	workflow.LastExecutedAt = &executedAt
	workflow.UpdatedAt = time.Now().UTC()

	return writeDocument(r.dir, workflow.ID, workflow)
}
