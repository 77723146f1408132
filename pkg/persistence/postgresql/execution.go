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

// ExecutionLogRepository stores run records in the execution_records
// table.
type ExecutionLogRepository struct {
	db *sql.DB
}

const executionColumns = `id, workflow_id, status, trigger_kind, trigger_payload,
	test_mode, started_at, completed_at, error_message`

func (r *ExecutionLogRepository) Append(ctx context.Context, record *models.ExecutionRecord) error {
	payload, err := json.Marshal(record.TriggerPayload)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger payload: %w", err)
	}

	query := `
		INSERT INTO execution_records (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.WorkflowID,
		record.Status,
		record.TriggerKind,
		payload,
		record.TestMode,
		record.StartedAt,
		record.CompletedAt,
		record.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to append execution record %s: %w", record.ID, err)
	}

	return nil
}

// Finalize sets the terminal status exactly once; a second call finds no
// unfinalized row and reports ErrExecutionFinalized.
func (r *ExecutionLogRepository) Finalize(ctx context.Context, id string, status models.ExecutionStatus, errorMessage string, completedAt time.Time) error {
	query := `
		UPDATE execution_records SET
			status = $2,
			error_message = $3,
			completed_at = $4
		WHERE id = $1 AND completed_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, status, errorMessage, completedAt)
	if err != nil {
		return fmt.Errorf("failed to finalize execution record %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		if _, err := r.ByID(ctx, id); err != nil {
			return err
		}

		return persistence.ErrExecutionFinalized
	}

	return nil
}

func (r *ExecutionLogRepository) ByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	query := "SELECT " + executionColumns + " FROM execution_records WHERE id = $1"

	record, err := scanExecutionRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to query execution record %s: %w", id, err)
	}

	return record, nil
}

func (r *ExecutionLogRepository) ByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT " + executionColumns + ` FROM execution_records
		WHERE workflow_id = $1 ORDER BY started_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*models.ExecutionRecord, 0)

	for rows.Next() {
		record, err := scanExecutionRecord(rows)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

func scanExecutionRecord(row rowScanner) (*models.ExecutionRecord, error) {
	var (
		record      models.ExecutionRecord
		payload     []byte
		completedAt sql.NullTime
	)

	err := row.Scan(
		&record.ID,
		&record.WorkflowID,
		&record.Status,
		&record.TriggerKind,
		&payload,
		&record.TestMode,
		&record.StartedAt,
		&completedAt,
		&record.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &record.TriggerPayload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger payload: %w", err)
		}
	}

	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}

	return &record, nil
}
