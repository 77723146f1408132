package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldline/automation/pkg/eventbus"
	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// ListenerConfig tunes the change-feed listener.
type ListenerConfig struct {
	// TenantID scopes which workflows this listener serves. Empty serves
	// every tenant seen on the feed.
	TenantID string

	// DedupWindow suppresses repeat fires of the same workflow for the
	// same entity. Zero disables deduplication.
	DedupWindow time.Duration
}

// Listener subscribes to the change topic and publishes a run request for
// every workflow a change fires. It never waits for run outcomes.
type Listener struct {
	logger    *slog.Logger
	workflows persistence.WorkflowRepository
	bus       eventbus.EventBus
	matcher   *Matcher
	deduper   Deduper
	config    ListenerConfig

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewListener(
	logger *slog.Logger,
	workflows persistence.WorkflowRepository,
	bus eventbus.EventBus,
	deduper Deduper,
	config ListenerConfig,
) *Listener {
	return &Listener{
		logger:    logger.With("module", "trigger_listener"),
		workflows: workflows,
		bus:       bus,
		matcher:   NewMatcher(logger),
		deduper:   deduper,
		config:    config,
	}
}

// Start subscribes to the change feed. Consumption runs in background
// goroutines until ctx is cancelled. Calling Start again cancels the
// previous subscription first.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	if err := l.bus.Handle(events.EntityChangedEvent, l.handleEntityChanged); err != nil {
		return fmt.Errorf("failed to register change handler: %w", err)
	}

	l.logger.InfoContext(ctx, "Trigger listener started",
		"tenant_id", l.config.TenantID,
		"dedup_window", l.config.DedupWindow.String())

	return l.bus.Subscribe(ctx)
}

// Close stops the subscription. Safe to call more than once.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.mu.Unlock()

	return l.bus.Close()
}

// handleEntityChanged matches one change event against the active workflow
// set and publishes run requests for the matches. Malformed events are
// logged and dropped rather than nacked, redelivery cannot fix them.
func (l *Listener) handleEntityChanged(ctx context.Context, event any) error {
	change, ok := event.(*events.EntityChanged)
	if !ok {
		l.logger.WarnContext(ctx, "Dropping event with unexpected payload type",
			"payload_type", fmt.Sprintf("%T", event))

		return nil
	}

	if change.Table == "" || change.EntityID == "" {
		l.logger.WarnContext(ctx, "Dropping malformed change event",
			"table", change.Table, "entity_id", change.EntityID)

		return nil
	}

	tenantID := l.config.TenantID
	if tenantID == "" {
		tenantID = change.TenantID
	}

	workflows, err := l.workflows.Active(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load active workflows: %w", err)
	}

	matched := l.matcher.MatchWorkflows(change, workflows)
	if len(matched) == 0 {
		return nil
	}

	for _, workflow := range matched {
		if !l.admit(ctx, workflow, change) {
			continue
		}

		request := events.RunRequested{
			BaseEvent:   events.NewBaseEvent(events.RunRequestedEvent, workflow.ID),
			TriggerKind: workflow.TriggerType,
			EntityType:  change.Table,
			EntityID:    change.EntityID,
			TenantID:    change.TenantID,
			TriggerPayload: map[string]any{
				"table": change.Table,
				"old":   change.Old,
				"new":   change.New,
			},
		}

		if err := l.bus.Publish(ctx, workflow.ID, request); err != nil {
			return fmt.Errorf("failed to publish run request for workflow %s: %w", workflow.ID, err)
		}

		l.logger.InfoContext(ctx, "Run requested",
			"workflow_id", workflow.ID,
			"trigger_kind", workflow.TriggerType,
			"entity_id", change.EntityID)
	}

	return nil
}

// admit applies the dedup window. Dedup failures fail open: a duplicate
// run beats a silently dropped one.
func (l *Listener) admit(ctx context.Context, workflow *models.Workflow, change *events.EntityChanged) bool {
	if l.deduper == nil || l.config.DedupWindow <= 0 {
		return true
	}

	key := workflow.ID + ":" + change.EntityID

	first, err := l.deduper.FirstSeen(ctx, key, l.config.DedupWindow)
	if err != nil {
		l.logger.ErrorContext(ctx, "Dedup check failed, admitting run",
			"workflow_id", workflow.ID, "entity_id", change.EntityID, "error", err)

		return true
	}

	if !first {
		l.logger.InfoContext(ctx, "Suppressed duplicate run request",
			"workflow_id", workflow.ID, "entity_id", change.EntityID)
	}

	return first
}
