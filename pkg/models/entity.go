package models

import "time"

// Entity table names used by the change feed and the variable resolver.
const (
	EntityJob     = "jobs"
	EntityClient  = "clients"
	EntityInvoice = "invoices"
)

// InvoiceStatusPaid is the terminal invoice status that fires
// payment_received triggers.
const InvoiceStatusPaid = "paid"

// Job is a scheduled piece of field work for a client.
type Job struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	ClientID    string     `json:"client_id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Address     string     `json:"address,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Client is a customer record.
type Client struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	CompanyName string    `json:"company_name,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Invoice bills a client, usually for a job.
type Invoice struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	ClientID  string    `json:"client_id"`
	JobID     string    `json:"job_id,omitempty"`
	Number    string    `json:"number"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is an internal in-app message written by notify steps.
type Notification struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}
