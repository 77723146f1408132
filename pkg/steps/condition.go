package steps

import (
	"context"
	"fmt"

	"github.com/fieldline/automation/pkg/models"
)

// executeCondition evaluates the configured comparison against the run's
// variables. A false result stops the run without failing it.
func (e *Executor) executeCondition(ctx context.Context, step models.Step, execCtx *models.ExecutionContext) (bool, error) {
	matched, err := step.Condition.Evaluate(execCtx.Variables)
	if err != nil {
		return false, fmt.Errorf("step %q: condition evaluation failed: %w", step.ID, err)
	}

	if !matched {
		e.logger.InfoContext(ctx, "Condition not met, stopping run",
			"step_id", step.ID,
			"field", step.Condition.Field,
			"operator", string(step.Condition.Operator))
	}

	return matched, nil
}
