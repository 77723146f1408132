package steps

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/automation/pkg/mocks"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/resilience"
)

type executorFixture struct {
	executor      *Executor
	sms           *mocks.MockSMSSender
	email         *mocks.MockEmailSender
	notifications *mocks.MockNotificationRepository
	registry      *resilience.Registry
}

func newFixture() *executorFixture {
	sms := new(mocks.MockSMSSender)
	email := new(mocks.MockEmailSender)
	notifications := new(mocks.MockNotificationRepository)
	registry := resilience.NewRegistry(resilience.DefaultConfig())

	executor := NewExecutor(slog.Default(), sms, email, notifications, registry)
	executor.sendPolicy = resilience.Policy{MaxRetries: 2, BaseDelay: time.Millisecond}

	return &executorFixture{
		executor:      executor,
		sms:           sms,
		email:         email,
		notifications: notifications,
		registry:      registry,
	}
}

func execContext(vars map[string]string) *models.ExecutionContext {
	return &models.ExecutionContext{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		EntityType: models.EntityJob,
		EntityID:   "job-1",
		TenantID:   "tenant-1",
		Variables:  vars,
	}
}

func TestExecuteMessage_SMSRendersTemplate(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.sms.On("SendSMS", mock.Anything, "+15550100", "Hi Dana, see you March 14, 2026").Return(nil)

	step := models.Step{
		ID:   "s1",
		Kind: models.StepMessage,
		Message: &models.MessageConfig{
			Channel:  models.ChannelSMS,
			Template: "Hi {{client_name}}, see you {{appointment_date}}",
		},
	}

	cont, err := f.executor.Execute(context.Background(), step, execContext(map[string]string{
		"client_name":      "Dana",
		"client_phone":     "+15550100",
		"appointment_date": "March 14, 2026",
	}))
	require.NoError(t, err)
	assert.True(t, cont)
	f.sms.AssertExpectations(t)
}

func TestExecuteMessage_MissingPhoneIsTerminal(t *testing.T) {
	t.Parallel()

	f := newFixture()

	step := models.Step{
		ID:      "s1",
		Kind:    models.StepMessage,
		Message: &models.MessageConfig{Channel: models.ChannelSMS, Template: "hello"},
	}

	_, err := f.executor.Execute(context.Background(), step, execContext(map[string]string{}))
	require.Error(t, err)
	assert.True(t, IsTerminal(err))
	f.sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteMessage_RetriesTransientSendFailures(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.sms.On("SendSMS", mock.Anything, "+15550100", "hello").
		Return(errors.New("gateway timeout")).Twice()
	f.sms.On("SendSMS", mock.Anything, "+15550100", "hello").Return(nil).Once()

	step := models.Step{
		ID:      "s1",
		Kind:    models.StepMessage,
		Message: &models.MessageConfig{Channel: models.ChannelSMS, Template: "hello"},
	}

	_, err := f.executor.Execute(context.Background(), step, execContext(map[string]string{
		"client_phone": "+15550100",
	}))
	require.NoError(t, err)
	f.sms.AssertNumberOfCalls(t, "SendSMS", 3)
}

func TestExecuteMessage_OpenBreakerSkipsSender(t *testing.T) {
	t.Parallel()

	f := newFixture()

	breaker := f.registry.Breaker(SMSBreaker)
	for range resilience.DefaultFailureThreshold {
		breaker.RecordFailure()
	}

	step := models.Step{
		ID:      "s1",
		Kind:    models.StepMessage,
		Message: &models.MessageConfig{Channel: models.ChannelSMS, Template: "hello"},
	}

	_, err := f.executor.Execute(context.Background(), step, execContext(map[string]string{
		"client_phone": "+15550100",
	}))
	require.Error(t, err)
	assert.True(t, resilience.IsCircuitOpen(err))
	f.sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteMessage_EmailRendersSubject(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.email.On("SendEmail", mock.Anything, "dana@example.com", "Invoice INV-0042", "Amount due: 249.50").
		Return(nil)

	step := models.Step{
		ID:   "s1",
		Kind: models.StepMessage,
		Message: &models.MessageConfig{
			Channel:  models.ChannelEmail,
			Template: "Amount due: {{amount}}",
			Subject:  "Invoice {{invoice_number}}",
		},
	}

	_, err := f.executor.Execute(context.Background(), step, execContext(map[string]string{
		"client_email":   "dana@example.com",
		"invoice_number": "INV-0042",
		"amount":         "249.50",
	}))
	require.NoError(t, err)
	f.email.AssertExpectations(t)
}

func TestExecuteDelay_CancellationReleasesWait(t *testing.T) {
	t.Parallel()

	f := newFixture()

	step := models.Step{
		ID:    "s1",
		Kind:  models.StepDelay,
		Delay: &models.DelayConfig{Amount: 1, Unit: models.UnitHours},
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		_, err := f.executor.Execute(ctx, step, execContext(nil))
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("delay step did not observe cancellation")
	}
}

func TestExecuteCondition_FalseStopsRunWithoutError(t *testing.T) {
	t.Parallel()

	f := newFixture()

	step := models.Step{
		ID:   "s1",
		Kind: models.StepCondition,
		Condition: &models.ConditionConfig{
			Field:    "job_status",
			Operator: models.OpEquals,
			Value:    "completed",
		},
	}

	cont, err := f.executor.Execute(context.Background(), step, execContext(map[string]string{
		"job_status": "scheduled",
	}))
	require.NoError(t, err)
	assert.False(t, cont)
}

func TestExecuteCondition_TrueContinues(t *testing.T) {
	t.Parallel()

	f := newFixture()

	step := models.Step{
		ID:   "s1",
		Kind: models.StepCondition,
		Condition: &models.ConditionConfig{
			Field:    "amount",
			Operator: models.OpGreaterThan,
			Value:    "100",
		},
	}

	cont, err := f.executor.Execute(context.Background(), step, execContext(map[string]string{
		"amount": "249.50",
	}))
	require.NoError(t, err)
	assert.True(t, cont)
}

func TestExecuteNotify_InsertsRenderedNotification(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.notifications.On("Insert", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
		return n.Message == "Job for Dana is done" &&
			n.TenantID == "tenant-1" &&
			n.WorkflowID == "wf-1" &&
			n.EntityID == "job-1"
	})).Return(nil)

	step := models.Step{
		ID:     "s1",
		Kind:   models.StepNotify,
		Notify: &models.NotifyConfig{Template: "Job for {{client_name}} is done"},
	}

	_, err := f.executor.Execute(context.Background(), step, execContext(map[string]string{
		"client_name": "Dana",
	}))
	require.NoError(t, err)
	f.notifications.AssertExpectations(t)
}

func TestExecute_UnknownKindFails(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, err := f.executor.Execute(context.Background(), models.Step{ID: "s1", Kind: "webhook"}, execContext(nil))
	require.Error(t, err)
}
