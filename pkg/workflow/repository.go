// Package workflow is the authoring layer over workflow storage: it owns
// identifier assignment, validation, and lifecycle transitions.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

type Repository struct {
	store    persistence.Persistence
	validate *validator.Validate
}

func NewRepository(store persistence.Persistence) *Repository {
	return &Repository{
		store:    store,
		validate: validator.New(),
	}
}

func (r *Repository) HealthCheck(ctx context.Context) (string, bool) {
	if r.store == nil {
		return "Persistence layer not initialized", false
	}

	if err := r.store.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (r *Repository) FetchAll(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	workflows, err := r.store.Workflows().All(ctx, tenantID)
	if err != nil {
		return make([]*models.Workflow, 0), err
	}

	return workflows, nil
}

func (r *Repository) FetchActive(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	workflows, err := r.store.Workflows().Active(ctx, tenantID)
	if err != nil {
		return make([]*models.Workflow, 0), err
	}

	return workflows, nil
}

func (r *Repository) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.store.Workflows().ByID(ctx, id)
}

func (r *Repository) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusPaused
	}

	if err := r.validateWorkflow(workflow); err != nil {
		return nil, err
	}

	if err := r.store.Workflows().Save(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *Repository) Update(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	existing, err := r.store.Workflows().ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.ID = id
	workflow.TenantID = existing.TenantID
	workflow.CreatedAt = existing.CreatedAt
	workflow.ExecutionCount = existing.ExecutionCount
	workflow.SuccessCount = existing.SuccessCount
	workflow.LastExecutedAt = existing.LastExecutedAt
	workflow.UpdatedAt = time.Now().UTC()

	if err := r.validateWorkflow(workflow); err != nil {
		return nil, err
	}

	if err := r.store.Workflows().Save(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.store.Workflows().Delete(ctx, id)
}

// SetStatus pauses or activates a workflow without touching its definition.
func (r *Repository) SetStatus(ctx context.Context, id string, status models.WorkflowStatus) (*models.Workflow, error) {
	existing, err := r.store.Workflows().ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Status = status
	existing.UpdatedAt = time.Now().UTC()

	if err := r.store.Workflows().Save(ctx, existing); err != nil {
		return nil, err
	}

	return existing, nil
}

// validateWorkflow combines struct-level validation with the per-kind JSON
// Schema check of each step configuration.
func (r *Repository) validateWorkflow(workflow *models.Workflow) error {
	if err := r.validate.Struct(workflow); err != nil {
		return fmt.Errorf("workflow validation failed: %w", err)
	}

	if err := models.ValidateSteps(workflow.Steps); err != nil {
		return fmt.Errorf("workflow validation failed: %w", err)
	}

	return nil
}
