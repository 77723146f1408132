// Package trigger turns entity change events into run requests by matching
// them against active workflow definitions.
package trigger

import (
	"log/slog"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
)

// Matcher decides which workflows a change event fires.
type Matcher struct {
	logger *slog.Logger
}

func NewMatcher(logger *slog.Logger) *Matcher {
	return &Matcher{
		logger: logger.With("module", "trigger_matcher"),
	}
}

// MatchWorkflows returns the active workflows fired by the change event.
// Workflows are evaluated independently; a single change can fire many.
func (m *Matcher) MatchWorkflows(change *events.EntityChanged, workflows []*models.Workflow) []*models.Workflow {
	var matched []*models.Workflow

	for _, workflow := range workflows {
		if !workflow.IsActive() {
			continue
		}

		if m.matches(change, workflow) {
			m.logger.Debug("Change event matched workflow",
				"workflow_id", workflow.ID,
				"trigger_type", workflow.TriggerType,
				"table", change.Table,
				"entity_id", change.EntityID)
			matched = append(matched, workflow)
		}
	}

	return matched
}

func (m *Matcher) matches(change *events.EntityChanged, workflow *models.Workflow) bool {
	conditions := workflow.TriggerConditions

	if conditions.EntityType != "" && conditions.EntityType != change.Table {
		return false
	}

	// Synthetic events from the appointment scan carry the due marker and
	// recur every scan; they must not fire insert or status triggers.
	if isAppointmentScan(change) && workflow.TriggerType != models.TriggerAppointmentDue {
		return false
	}

	switch workflow.TriggerType {
	case models.TriggerStatusChange:
		return matchStatusChange(change, conditions)
	case models.TriggerEntityCreated:
		return change.IsInsert()
	case models.TriggerPaymentReceived:
		return matchPaymentReceived(change)
	case models.TriggerAppointmentDue:
		// Fired only by the appointment scheduler source, which tags its
		// synthetic events with the due marker.
		return matchAppointmentDue(change)
	default:
		m.logger.Warn("Workflow has unknown trigger type, skipping",
			"workflow_id", workflow.ID, "trigger_type", workflow.TriggerType)

		return false
	}
}

// matchStatusChange fires on updates whose status actually changed and
// passes the from/to filters. An unset filter matches anything, including
// the nil old status of an insert.
func matchStatusChange(change *events.EntityChanged, conditions models.TriggerConditions) bool {
	oldStatus := change.OldStatus()
	newStatus := change.NewStatus()

	if oldStatus == newStatus {
		return false
	}

	if conditions.FromStatus != "" && conditions.FromStatus != oldStatus {
		return false
	}

	if conditions.ToStatus != "" && conditions.ToStatus != newStatus {
		return false
	}

	return true
}

// matchPaymentReceived fires exactly once per invoice payment: the update
// that flips status to paid. Re-saving an already-paid invoice stays quiet.
func matchPaymentReceived(change *events.EntityChanged) bool {
	if change.Table != models.EntityInvoice {
		return false
	}

	return change.OldStatus() != models.InvoiceStatusPaid &&
		change.NewStatus() == models.InvoiceStatusPaid
}

func matchAppointmentDue(change *events.EntityChanged) bool {
	return change.Table == models.EntityJob && isAppointmentScan(change)
}

func isAppointmentScan(change *events.EntityChanged) bool {
	due, ok := change.New["appointment_due"].(bool)

	return ok && due
}
