package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fieldline/automation/pkg/eventbus"
	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/persistence"
)

// Worker consumes run requests from the bus and executes them. Runs are
// independent, so the bus is free to deliver to many workers concurrently.
type Worker struct {
	id     string
	logger *slog.Logger
	engine *Engine
	bus    eventbus.EventBus
}

func NewWorker(logger *slog.Logger, engine *Engine, bus eventbus.EventBus) *Worker {
	id := uuid.New().String()

	return &Worker{
		id:     id,
		logger: logger.With("module", "worker", "worker_id", id),
		engine: engine,
		bus:    bus,
	}
}

func (w *Worker) ID() string {
	return w.id
}

// Start registers the run request handler and opens the subscription.
// Consumption runs in background goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.bus.Handle(events.RunRequestedEvent, w.handleRunRequested); err != nil {
		return fmt.Errorf("failed to register run request handler: %w", err)
	}

	w.logger.InfoContext(ctx, "Worker started")

	return w.bus.Subscribe(ctx)
}

func (w *Worker) Close() error {
	return w.bus.Close()
}

// handleRunRequested executes one requested run. Infrastructure errors are
// returned to nack the message for redelivery; a run that merely had step
// failures is already finalized and must not be redelivered. A request for
// a deleted workflow is dropped.
func (w *Worker) handleRunRequested(ctx context.Context, event any) error {
	request, ok := event.(*events.RunRequested)
	if !ok {
		w.logger.WarnContext(ctx, "Dropping event with unexpected payload type",
			"payload_type", fmt.Sprintf("%T", event))

		return nil
	}

	w.logger.InfoContext(ctx, "Handling run request",
		"workflow_id", request.WorkflowID,
		"trigger_kind", request.TriggerKind,
		"entity_id", request.EntityID)

	_, err := w.engine.Run(ctx, &Request{
		WorkflowID:     request.WorkflowID,
		TriggerKind:    request.TriggerKind,
		EntityType:     request.EntityType,
		EntityID:       request.EntityID,
		TenantID:       request.TenantID,
		TriggerPayload: request.TriggerPayload,
		TestMode:       request.TestMode,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrWorkflowNotFound) {
			w.logger.WarnContext(ctx, "Dropping run request for missing workflow",
				"workflow_id", request.WorkflowID)

			return nil
		}

		return err
	}

	return nil
}
