// Package steps executes the individual workflow step kinds. Executors are
// stateless; all per-run state lives in the execution context passed in.
package steps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
	"github.com/fieldline/automation/pkg/protocol"
	"github.com/fieldline/automation/pkg/resilience"
)

// Breaker names for the outbound senders. One breaker per provider, shared
// across all concurrent runs.
const (
	SMSBreaker   = "sms-sender"
	EmailBreaker = "email-sender"
)

// DefaultSendPolicy is the retry policy applied to outbound sends.
var DefaultSendPolicy = resilience.Policy{
	MaxRetries:  3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    10 * time.Second,
	Exponential: true,
}

// Executor dispatches a step to its kind-specific handler.
type Executor struct {
	logger        *slog.Logger
	sms           protocol.SMSSender
	email         protocol.EmailSender
	notifications persistence.NotificationRepository
	resilience    *resilience.Registry
	sendPolicy    resilience.Policy
}

func NewExecutor(
	logger *slog.Logger,
	sms protocol.SMSSender,
	email protocol.EmailSender,
	notifications persistence.NotificationRepository,
	registry *resilience.Registry,
) *Executor {
	return &Executor{
		logger:        logger.With("module", "steps"),
		sms:           sms,
		email:         email,
		notifications: notifications,
		resilience:    registry,
		sendPolicy:    DefaultSendPolicy,
	}
}

// Execute runs one step. The returned continue flag is false only when a
// condition step evaluated false; errors never stop the run by themselves,
// that decision belongs to the engine.
func (e *Executor) Execute(ctx context.Context, step models.Step, execCtx *models.ExecutionContext) (bool, error) {
	switch step.Kind {
	case models.StepMessage:
		return true, e.executeMessage(ctx, step, execCtx)
	case models.StepDelay:
		return true, e.executeDelay(ctx, step)
	case models.StepCondition:
		return e.executeCondition(ctx, step, execCtx)
	case models.StepNotify:
		return true, e.executeNotify(ctx, step, execCtx)
	default:
		return false, fmt.Errorf("step %q: unknown step kind %q", step.ID, step.Kind)
	}
}

// wait blocks for d or until the run's context is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
