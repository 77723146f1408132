// Package scheduler emits synthetic change events for jobs whose
// appointment falls inside the reminder window. The trigger listener treats
// them like any other change on the feed.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fieldline/automation/pkg/eventbus"
	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// Config tunes the appointment scan.
type Config struct {
	// TenantID scopes the scan.
	TenantID string

	// LeadTime is how far ahead of the appointment the reminder fires.
	LeadTime time.Duration

	// CronSpec is the scan schedule in standard five-field cron syntax.
	CronSpec string
}

func DefaultConfig(tenantID string) Config {
	return Config{
		TenantID: tenantID,
		LeadTime: 24 * time.Hour,
		CronSpec: "*/15 * * * *",
	}
}

// Source periodically scans upcoming jobs and publishes an appointment-due
// change event for each. Duplicate suppression across scans is the
// listener's dedup window's job.
type Source struct {
	logger   *slog.Logger
	entities persistence.EntityRepository
	bus      eventbus.EventBus
	config   Config

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

func NewSource(logger *slog.Logger, entities persistence.EntityRepository, bus eventbus.EventBus, config Config) *Source {
	return &Source{
		logger:   logger.With("module", "scheduler_source"),
		entities: entities,
		bus:      bus,
		config:   config,
	}
}

// Start schedules the periodic scan. Idempotent.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	runner := cron.New()

	_, err := runner.AddFunc(s.config.CronSpec, func() {
		s.scan(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.config.CronSpec, err)
	}

	runner.Start()
	s.cron = runner
	s.started = true

	s.logger.InfoContext(ctx, "Appointment scheduler started",
		"cron_spec", s.config.CronSpec,
		"lead_time", s.config.LeadTime.String())

	return nil
}

// Stop halts the scan and waits for an in-flight run to finish.
func (s *Source) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	s.started = false
	s.logger.InfoContext(ctx, "Appointment scheduler stopped")

	return nil
}

// scan publishes one appointment-due event per job scheduled inside the
// lead window.
func (s *Source) scan(ctx context.Context) {
	now := time.Now().UTC()

	jobs, err := s.entities.JobsScheduledBetween(ctx, s.config.TenantID, now, now.Add(s.config.LeadTime))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to scan upcoming appointments", "error", err)

		return
	}

	for _, job := range jobs {
		event := events.EntityChanged{
			BaseEvent: events.NewBaseEvent(events.EntityChangedEvent, ""),
			Table:     models.EntityJob,
			TenantID:  job.TenantID,
			EntityID:  job.ID,
			New: map[string]any{
				"appointment_due": true,
				"status":          job.Status,
				"scheduled_at":    job.ScheduledAt,
			},
		}

		if err := s.bus.Publish(ctx, job.ID, event); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish appointment-due event",
				"job_id", job.ID, "error", err)

			continue
		}

		s.logger.InfoContext(ctx, "Appointment reminder queued",
			"job_id", job.ID, "scheduled_at", job.ScheduledAt)
	}
}
