// Package postgresql provides the PostgreSQL store used in deployment.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// postgres driver
	_ "github.com/lib/pq"

	"github.com/fieldline/automation/pkg/persistence"
	"github.com/fieldline/automation/pkg/persistence/sqlbase"
)

// Persistence implements persistence.Persistence over PostgreSQL.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	workflows     *WorkflowRepository
	executions    *ExecutionLogRepository
	entities      *EntityRepository
	notifications *NotificationRepository
}

// NewPersistence connects, runs migrations, and returns the store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	if err := migrationManager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:            database,
		logger:        logger,
		workflows:     &WorkflowRepository{db: database},
		executions:    &ExecutionLogRepository{db: database},
		entities:      &EntityRepository{db: database},
		notifications: &NotificationRepository{db: database},
	}, nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) Executions() persistence.ExecutionLogRepository {
	return p.executions
}

func (p *Persistence) Entities() persistence.EntityRepository {
	return p.entities
}

func (p *Persistence) Notifications() persistence.NotificationRepository {
	return p.notifications
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	if p.db == nil {
		return nil
	}

	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

func migrations() map[int]string {
	return map[int]string{
		1: `
		CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			trigger_type TEXT NOT NULL,
			trigger_conditions JSONB NOT NULL DEFAULT '{}',
			steps JSONB NOT NULL DEFAULT '[]',
			execution_count BIGINT NOT NULL DEFAULT 0,
			success_count BIGINT NOT NULL DEFAULT 0,
			last_executed_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_workflows_tenant_trigger
			ON workflows (tenant_id, status, trigger_type);

		CREATE TABLE IF NOT EXISTS execution_records (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL REFERENCES workflows (id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			trigger_kind TEXT NOT NULL,
			trigger_payload JSONB,
			test_mode BOOLEAN NOT NULL DEFAULT FALSE,
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			completed_at TIMESTAMP WITH TIME ZONE,
			error_message TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_execution_records_workflow
			ON execution_records (workflow_id, started_at DESC);

		CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			workflow_id TEXT NOT NULL DEFAULT '',
			entity_type TEXT NOT NULL DEFAULT '',
			entity_id TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_notifications_tenant_unread
			ON notifications (tenant_id, read, created_at DESC);

		CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			company_name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			client_id TEXT NOT NULL REFERENCES clients (id),
			title TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			scheduled_at TIMESTAMP WITH TIME ZONE,
			address TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_jobs_tenant_scheduled
			ON jobs (tenant_id, scheduled_at);

		CREATE TABLE IF NOT EXISTS invoices (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			client_id TEXT NOT NULL REFERENCES clients (id),
			job_id TEXT NOT NULL DEFAULT '',
			number TEXT NOT NULL,
			amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			due_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		`,
	}
}
