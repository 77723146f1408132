package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/template"
)

// executeMessage renders the template and delivers it over the configured
// channel. Contact details come from the resolved variables; a missing
// contact is terminal and never hits the sender or its breaker.
func (e *Executor) executeMessage(ctx context.Context, step models.Step, execCtx *models.ExecutionContext) error {
	config := step.Message
	body := template.Render(config.Template, execCtx.Variables)

	if config.DelayMinutes > 0 {
		delay := time.Duration(config.DelayMinutes) * time.Minute

		e.logger.InfoContext(ctx, "Delaying message send",
			"step_id", step.ID, "delay_minutes", config.DelayMinutes)

		if err := wait(ctx, delay); err != nil {
			return fmt.Errorf("message delay interrupted: %w", err)
		}
	}

	switch config.Channel {
	case models.ChannelSMS:
		return e.sendSMS(ctx, step, execCtx, body)
	case models.ChannelEmail:
		return e.sendEmail(ctx, step, execCtx, body)
	default:
		return fmt.Errorf("step %q: unknown message channel %q", step.ID, config.Channel)
	}
}

func (e *Executor) sendSMS(ctx context.Context, step models.Step, execCtx *models.ExecutionContext, body string) error {
	to := execCtx.Variables["client_phone"]
	if to == "" {
		return &TerminalError{StepID: step.ID, Reason: "no phone number on file for client"}
	}

	policy := e.sendPolicy
	policy.Breaker = SMSBreaker

	err := e.resilience.Retry(ctx, policy, func(ctx context.Context) error {
		return e.sms.SendSMS(ctx, to, body)
	})
	if err != nil {
		return fmt.Errorf("step %q: sms send failed: %w", step.ID, err)
	}

	e.logger.InfoContext(ctx, "SMS sent", "step_id", step.ID, "execution_id", execCtx.ID)

	return nil
}

func (e *Executor) sendEmail(ctx context.Context, step models.Step, execCtx *models.ExecutionContext, body string) error {
	to := execCtx.Variables["client_email"]
	if to == "" {
		return &TerminalError{StepID: step.ID, Reason: "no email address on file for client"}
	}

	subject := template.Render(step.Message.Subject, execCtx.Variables)

	policy := e.sendPolicy
	policy.Breaker = EmailBreaker

	err := e.resilience.Retry(ctx, policy, func(ctx context.Context) error {
		return e.email.SendEmail(ctx, to, subject, body)
	})
	if err != nil {
		return fmt.Errorf("step %q: email send failed: %w", step.ID, err)
	}

	e.logger.InfoContext(ctx, "Email sent", "step_id", step.ID, "execution_id", execCtx.ID)

	return nil
}
