package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// WorkflowRepository stores workflow definitions in the workflows table.
// Trigger conditions and steps are JSONB columns.
type WorkflowRepository struct {
	db *sql.DB
}

const workflowColumns = `id, tenant_id, name, description, status, trigger_type,
	trigger_conditions, steps, execution_count, success_count,
	last_executed_at, created_at, updated_at`

func (r *WorkflowRepository) All(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	query := "SELECT " + workflowColumns + " FROM workflows WHERE tenant_id = $1 ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanWorkflows(rows)
}

func (r *WorkflowRepository) Active(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	query := "SELECT " + workflowColumns + " FROM workflows WHERE tenant_id = $1 AND status = $2 ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, query, tenantID, models.WorkflowStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query active workflows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanWorkflows(rows)
}

func (r *WorkflowRepository) ByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := "SELECT " + workflowColumns + " FROM workflows WHERE id = $1"

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to query workflow %s: %w", id, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	conditions, err := json.Marshal(workflow.TriggerConditions)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger conditions: %w", err)
	}

	steps, err := json.Marshal(workflow.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			trigger_type = EXCLUDED.trigger_type,
			trigger_conditions = EXCLUDED.trigger_conditions,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.TenantID,
		workflow.Name,
		workflow.Description,
		workflow.Status,
		workflow.TriggerType,
		conditions,
		steps,
		workflow.ExecutionCount,
		workflow.SuccessCount,
		workflow.LastExecutedAt,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

// RecordRun increments counters in place so concurrent finishing runs
// never lose an update; last_executed_at is last-writer-wins.
func (r *WorkflowRepository) RecordRun(ctx context.Context, id string, succeeded bool, executedAt time.Time) error {
	query := `
		UPDATE workflows SET
			execution_count = execution_count + 1,
			success_count = success_count + CASE WHEN $2 THEN 1 ELSE 0 END,
			last_executed_at = $3,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, succeeded, executedAt)
	if err != nil {
		return fmt.Errorf("failed to record run for workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow   models.Workflow
		conditions []byte
		steps      []byte
		lastRun    sql.NullTime
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.TenantID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Status,
		&workflow.TriggerType,
		&conditions,
		&steps,
		&workflow.ExecutionCount,
		&workflow.SuccessCount,
		&lastRun,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(conditions, &workflow.TriggerConditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger conditions: %w", err)
	}

	if err := json.Unmarshal(steps, &workflow.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}

	if lastRun.Valid {
		workflow.LastExecutedAt = &lastRun.Time
	}

	return &workflow, nil
}

func scanWorkflows(rows *sql.Rows) ([]*models.Workflow, error) {
	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, rows.Err()
}
