package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// EntityRepository reads jobs, clients, and invoices. The engine only
// reads; the product's CRUD surface owns the writes.
type EntityRepository struct {
	db *sql.DB
}

func (r *EntityRepository) JobByID(ctx context.Context, tenantID, id string) (*models.Job, error) {
	query := `
		SELECT id, tenant_id, client_id, title, status, scheduled_at, address, created_at, updated_at
		FROM jobs WHERE id = $1 AND tenant_id = $2`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEntityNotFound
		}

		return nil, fmt.Errorf("failed to query job %s: %w", id, err)
	}

	return job, nil
}

func (r *EntityRepository) ClientByID(ctx context.Context, tenantID, id string) (*models.Client, error) {
	query := `
		SELECT id, tenant_id, name, company_name, phone, email, address, created_at
		FROM clients WHERE id = $1 AND tenant_id = $2`

	var client models.Client

	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&client.ID,
		&client.TenantID,
		&client.Name,
		&client.CompanyName,
		&client.Phone,
		&client.Email,
		&client.Address,
		&client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEntityNotFound
		}

		return nil, fmt.Errorf("failed to query client %s: %w", id, err)
	}

	return &client, nil
}

func (r *EntityRepository) InvoiceByID(ctx context.Context, tenantID, id string) (*models.Invoice, error) {
	query := `
		SELECT id, tenant_id, client_id, job_id, number, amount, status, due_at, created_at
		FROM invoices WHERE id = $1 AND tenant_id = $2`

	var (
		invoice models.Invoice
		dueAt   sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&invoice.ID,
		&invoice.TenantID,
		&invoice.ClientID,
		&invoice.JobID,
		&invoice.Number,
		&invoice.Amount,
		&invoice.Status,
		&dueAt,
		&invoice.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEntityNotFound
		}

		return nil, fmt.Errorf("failed to query invoice %s: %w", id, err)
	}

	if dueAt.Valid {
		invoice.DueAt = &dueAt.Time
	}

	return &invoice, nil
}

func (r *EntityRepository) JobsScheduledBetween(ctx context.Context, tenantID string, from, to time.Time) ([]*models.Job, error) {
	query := `
		SELECT id, tenant_id, client_id, title, status, scheduled_at, address, created_at, updated_at
		FROM jobs
		WHERE tenant_id = $1 AND scheduled_at BETWEEN $2 AND $3
		ORDER BY scheduled_at`

	rows, err := r.db.QueryContext(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]*models.Job, 0)

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		job         models.Job
		scheduledAt sql.NullTime
	)

	err := row.Scan(
		&job.ID,
		&job.TenantID,
		&job.ClientID,
		&job.Title,
		&job.Status,
		&scheduledAt,
		&job.Address,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if scheduledAt.Valid {
		job.ScheduledAt = &scheduledAt.Time
	}

	return &job, nil
}
