package file

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// EntityRepository reads jobs, clients, and invoices from JSON files. The
// engine never writes entities; test fixtures and the product's CRUD
// surface do.
type EntityRepository struct {
	root string
}

func NewEntityRepository(root string) *EntityRepository {
	return &EntityRepository{root: root}
}

func (r *EntityRepository) JobByID(_ context.Context, tenantID, id string) (*models.Job, error) {
	var job models.Job

	if err := r.read(models.EntityJob, id, &job); err != nil {
		return nil, err
	}

	if tenantID != "" && job.TenantID != tenantID {
		return nil, persistence.ErrEntityNotFound
	}

	return &job, nil
}

func (r *EntityRepository) ClientByID(_ context.Context, tenantID, id string) (*models.Client, error) {
	var client models.Client

	if err := r.read(models.EntityClient, id, &client); err != nil {
		return nil, err
	}

	if tenantID != "" && client.TenantID != tenantID {
		return nil, persistence.ErrEntityNotFound
	}

	return &client, nil
}

func (r *EntityRepository) InvoiceByID(_ context.Context, tenantID, id string) (*models.Invoice, error) {
	var invoice models.Invoice

	if err := r.read(models.EntityInvoice, id, &invoice); err != nil {
		return nil, err
	}

	if tenantID != "" && invoice.TenantID != tenantID {
		return nil, persistence.ErrEntityNotFound
	}

	return &invoice, nil
}

func (r *EntityRepository) JobsScheduledBetween(ctx context.Context, tenantID string, from, to time.Time) ([]*models.Job, error) {
	dir := filepath.Join(r.root, models.EntityJob)

	ids, err := listIDs(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.Job{}, nil
		}

		return nil, err
	}

	jobs := make([]*models.Job, 0)

	for _, id := range ids {
		job, err := r.JobByID(ctx, "", id)
		if err != nil {
			return nil, err
		}

		if tenantID != "" && job.TenantID != tenantID {
			continue
		}

		if job.ScheduledAt == nil {
			continue
		}

		if job.ScheduledAt.Before(from) || job.ScheduledAt.After(to) {
			continue
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (r *EntityRepository) read(table, id string, document any) error {
	err := readDocument(filepath.Join(r.root, table), id, document)
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.ErrEntityNotFound
		}

		return err
	}

	return nil
}

// SeedJob, SeedClient and SeedInvoice write entity fixtures. They exist
// for local development and package tests.
func (r *EntityRepository) SeedJob(job *models.Job) error {
	return writeDocument(filepath.Join(r.root, models.EntityJob), job.ID, job)
}

func (r *EntityRepository) SeedClient(client *models.Client) error {
	return writeDocument(filepath.Join(r.root, models.EntityClient), client.ID, client)
}

func (r *EntityRepository) SeedInvoice(invoice *models.Invoice) error {
	return writeDocument(filepath.Join(r.root, models.EntityInvoice), invoice.ID, invoice)
}
