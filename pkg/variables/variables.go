// Package variables builds the substitution map handed to message and
// condition steps. Resolution is read-only and loads at most one level of
// relations from the primary entity.
package variables

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// Keys always present in a resolved map. Missing data resolves to an empty
// string rather than an absent key, so templates render predictably.
var knownKeys = []string{
	"client_name",
	"client_phone",
	"client_email",
	"company_name",
	"address",
	"job_status",
	"appointment_date",
	"appointment_time",
	"invoice_number",
	"amount",
	"invoice_status",
	"entity_id",
	"tenant_id",
}

const (
	appointmentDateLayout = "January 2, 2006"
	appointmentTimeLayout = "3:04 PM"
)

// Resolver loads entities and flattens them into template variables.
type Resolver struct {
	entities persistence.EntityRepository
	logger   *slog.Logger
}

func NewResolver(logger *slog.Logger, entities persistence.EntityRepository) *Resolver {
	return &Resolver{
		entities: entities,
		logger:   logger.With("module", "variables"),
	}
}

// Resolve returns the variable map for the given entity. Every known key is
// present. A missing related record degrades to empty strings instead of
// failing the execution.
func (r *Resolver) Resolve(ctx context.Context, entityType, entityID, tenantID string) (map[string]string, error) {
	vars := make(map[string]string, len(knownKeys))
	for _, key := range knownKeys {
		vars[key] = ""
	}

	vars["entity_id"] = entityID
	vars["tenant_id"] = tenantID

	switch entityType {
	case models.EntityJob:
		if err := r.resolveJob(ctx, tenantID, entityID, vars); err != nil {
			return nil, err
		}
	case models.EntityClient:
		client, err := r.entities.ClientByID(ctx, tenantID, entityID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve client %s: %w", entityID, err)
		}

		applyClient(vars, client)
	case models.EntityInvoice:
		if err := r.resolveInvoice(ctx, tenantID, entityID, vars); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}

	return vars, nil
}

func (r *Resolver) resolveJob(ctx context.Context, tenantID, jobID string, vars map[string]string) error {
	job, err := r.entities.JobByID(ctx, tenantID, jobID)
	if err != nil {
		return fmt.Errorf("failed to resolve job %s: %w", jobID, err)
	}

	vars["job_status"] = job.Status
	vars["address"] = job.Address

	if job.ScheduledAt != nil {
		vars["appointment_date"] = job.ScheduledAt.Format(appointmentDateLayout)
		vars["appointment_time"] = job.ScheduledAt.Format(appointmentTimeLayout)
	}

	r.applyClientRelation(ctx, tenantID, job.ClientID, vars)

	return nil
}

func (r *Resolver) resolveInvoice(ctx context.Context, tenantID, invoiceID string, vars map[string]string) error {
	invoice, err := r.entities.InvoiceByID(ctx, tenantID, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to resolve invoice %s: %w", invoiceID, err)
	}

	vars["invoice_number"] = invoice.Number
	vars["amount"] = formatAmount(invoice.Amount)
	vars["invoice_status"] = invoice.Status

	r.applyClientRelation(ctx, tenantID, invoice.ClientID, vars)

	return nil
}

// applyClientRelation fills client keys when the related record exists.
// A dangling client reference is logged, not fatal.
func (r *Resolver) applyClientRelation(ctx context.Context, tenantID, clientID string, vars map[string]string) {
	if clientID == "" {
		return
	}

	client, err := r.entities.ClientByID(ctx, tenantID, clientID)
	if err != nil {
		if errors.Is(err, persistence.ErrEntityNotFound) {
			r.logger.WarnContext(ctx, "Related client not found", "client_id", clientID)

			return
		}

		r.logger.ErrorContext(ctx, "Failed to load related client", "client_id", clientID, "error", err)

		return
	}

	applyClient(vars, client)
}

func applyClient(vars map[string]string, client *models.Client) {
	vars["client_name"] = client.Name
	vars["client_phone"] = client.Phone
	vars["client_email"] = client.Email
	vars["company_name"] = client.CompanyName

	if vars["address"] == "" {
		vars["address"] = client.Address
	}
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
