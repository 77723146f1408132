package steps

import (
	"context"
	"fmt"

	"github.com/fieldline/automation/pkg/models"
)

// executeDelay pauses the run. The wait is scoped to the run's context, so
// cancelling the run releases the goroutine immediately.
func (e *Executor) executeDelay(ctx context.Context, step models.Step) error {
	duration := step.Delay.Duration()

	e.logger.InfoContext(ctx, "Delaying execution",
		"step_id", step.ID, "duration", duration.String())

	if err := wait(ctx, duration); err != nil {
		return fmt.Errorf("delay interrupted: %w", err)
	}

	return nil
}
