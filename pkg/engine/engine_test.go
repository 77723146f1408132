package engine

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/automation/pkg/mocks"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
	"github.com/fieldline/automation/pkg/resilience"
	"github.com/fieldline/automation/pkg/steps"
)

type stubResolver struct {
	vars map[string]string
	err  error
}

func (s stubResolver) Resolve(_ context.Context, _, _, _ string) (map[string]string, error) {
	return s.vars, s.err
}

type engineFixture struct {
	engine        *Engine
	workflows     *mocks.MockWorkflowRepository
	executions    *mocks.MockExecutionLogRepository
	sms           *mocks.MockSMSSender
	email         *mocks.MockEmailSender
	notifications *mocks.MockNotificationRepository
}

func newEngineFixture(resolver VariableResolver, config Config) *engineFixture {
	workflows := new(mocks.MockWorkflowRepository)
	executions := new(mocks.MockExecutionLogRepository)
	sms := new(mocks.MockSMSSender)
	email := new(mocks.MockEmailSender)
	notifications := new(mocks.MockNotificationRepository)

	executor := steps.NewExecutor(
		slog.Default(), sms, email, notifications,
		resilience.NewRegistry(resilience.DefaultConfig()),
	)

	return &engineFixture{
		engine:        New(slog.Default(), workflows, executions, resolver, executor, nil, config),
		workflows:     workflows,
		executions:    executions,
		sms:           sms,
		email:         email,
		notifications: notifications,
	}
}

func thankYouWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:          "wf-1",
		TenantID:    "tenant-1",
		Name:        "Thank you SMS",
		Status:      models.WorkflowStatusActive,
		TriggerType: models.TriggerStatusChange,
		Steps: []models.Step{
			{
				ID:   "s1",
				Kind: models.StepMessage,
				Message: &models.MessageConfig{
					Channel:  models.ChannelSMS,
					Template: "Thanks {{client_name}}!",
				},
			},
		},
	}
}

func TestRun_CompletedRunSendsRenderedSMS(t *testing.T) {
	t.Parallel()

	resolver := stubResolver{vars: map[string]string{
		"client_name":  "John",
		"client_phone": "+15550100",
	}}
	f := newEngineFixture(resolver, DefaultConfig())

	f.workflows.On("ByID", mock.Anything, "wf-1").Return(thankYouWorkflow(), nil)
	f.workflows.On("RecordRun", mock.Anything, "wf-1", true, mock.Anything).Return(nil)
	f.executions.On("Append", mock.Anything, mock.MatchedBy(func(r *models.ExecutionRecord) bool {
		return r.WorkflowID == "wf-1" && r.Status == models.ExecutionStarted
	})).Return(nil)
	f.executions.On("Finalize", mock.Anything, mock.Anything, models.ExecutionCompleted, "", mock.Anything).
		Return(nil)
	f.sms.On("SendSMS", mock.Anything, "+15550100", "Thanks John!").Return(nil)

	result, err := f.engine.Run(context.Background(), &Request{
		WorkflowID:  "wf-1",
		TriggerKind: models.TriggerStatusChange,
		EntityType:  models.EntityJob,
		EntityID:    "job-1",
		TenantID:    "tenant-1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionCompleted, result.Status)
	assert.Equal(t, 1, result.StepsExecuted)
	f.sms.AssertNumberOfCalls(t, "SendSMS", 1)
	f.workflows.AssertExpectations(t)
	f.executions.AssertExpectations(t)
}

func TestTestWorkflow_SkipsCountersAndUsesSampleVariables(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(stubResolver{}, DefaultConfig())

	f.workflows.On("ByID", mock.Anything, "wf-1").Return(thankYouWorkflow(), nil)
	f.executions.On("Append", mock.Anything, mock.MatchedBy(func(r *models.ExecutionRecord) bool {
		return r.TestMode
	})).Return(nil)
	f.executions.On("Finalize", mock.Anything, mock.Anything, models.ExecutionCompleted, "", mock.Anything).
		Return(nil)
	f.sms.On("SendSMS", mock.Anything, "+15550199", "Thanks Sample!").Return(nil)

	result, err := f.engine.TestWorkflow(context.Background(), "wf-1", map[string]string{
		"client_name":  "Sample",
		"client_phone": "+15550199",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionCompleted, result.Status)
	f.workflows.AssertNotCalled(t, "RecordRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_StepFailureContinuesRemainingSteps(t *testing.T) {
	t.Parallel()

	// No phone number makes the first step fail terminally; the notify
	// step after it must still run.
	resolver := stubResolver{vars: map[string]string{"client_name": "John"}}
	f := newEngineFixture(resolver, DefaultConfig())

	workflow := thankYouWorkflow()
	workflow.Steps = append(workflow.Steps, models.Step{
		ID:     "s2",
		Kind:   models.StepNotify,
		Notify: &models.NotifyConfig{Template: "follow up with {{client_name}}"},
	})

	f.workflows.On("ByID", mock.Anything, "wf-1").Return(workflow, nil)
	f.workflows.On("RecordRun", mock.Anything, "wf-1", false, mock.Anything).Return(nil)
	f.executions.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.executions.On("Finalize", mock.Anything, mock.Anything, models.ExecutionFailed, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	}), mock.Anything).Return(nil)
	f.notifications.On("Insert", mock.Anything, mock.Anything).Return(nil)

	result, err := f.engine.Run(context.Background(), &Request{
		WorkflowID: "wf-1", TenantID: "tenant-1", EntityType: models.EntityJob, EntityID: "job-1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionFailed, result.Status)
	assert.Equal(t, 2, result.StepsExecuted)
	f.notifications.AssertNumberOfCalls(t, "Insert", 1)
	f.workflows.AssertExpectations(t)
}

func TestRun_StepFailureStopsWhenConfigured(t *testing.T) {
	t.Parallel()

	resolver := stubResolver{vars: map[string]string{"client_name": "John"}}
	f := newEngineFixture(resolver, Config{ContinueOnStepError: false})

	workflow := thankYouWorkflow()
	workflow.Steps = append(workflow.Steps, models.Step{
		ID:     "s2",
		Kind:   models.StepNotify,
		Notify: &models.NotifyConfig{Template: "never reached"},
	})

	f.workflows.On("ByID", mock.Anything, "wf-1").Return(workflow, nil)
	f.workflows.On("RecordRun", mock.Anything, "wf-1", false, mock.Anything).Return(nil)
	f.executions.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.executions.On("Finalize", mock.Anything, mock.Anything, models.ExecutionFailed, mock.Anything, mock.Anything).
		Return(nil)

	result, err := f.engine.Run(context.Background(), &Request{
		WorkflowID: "wf-1", TenantID: "tenant-1", EntityType: models.EntityJob, EntityID: "job-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.StepsExecuted)
	f.notifications.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestRun_ConditionFalseStopsWithoutFailing(t *testing.T) {
	t.Parallel()

	resolver := stubResolver{vars: map[string]string{"amount": "50"}}
	f := newEngineFixture(resolver, DefaultConfig())

	workflow := &models.Workflow{
		ID:          "wf-2",
		TenantID:    "tenant-1",
		Name:        "Large invoice follow-up",
		Status:      models.WorkflowStatusActive,
		TriggerType: models.TriggerPaymentReceived,
		Steps: []models.Step{
			{
				ID:   "s1",
				Kind: models.StepCondition,
				Condition: &models.ConditionConfig{
					Field:    "amount",
					Operator: models.OpGreaterThan,
					Value:    "100",
				},
			},
			{
				ID:   "s2",
				Kind: models.StepMessage,
				Message: &models.MessageConfig{
					Channel:  models.ChannelEmail,
					Template: "Thanks for the large order",
				},
			},
		},
	}

	f.workflows.On("ByID", mock.Anything, "wf-2").Return(workflow, nil)
	f.workflows.On("RecordRun", mock.Anything, "wf-2", true, mock.Anything).Return(nil)
	f.executions.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.executions.On("Finalize", mock.Anything, mock.Anything, models.ExecutionCompleted, "", mock.Anything).
		Return(nil)

	result, err := f.engine.Run(context.Background(), &Request{
		WorkflowID: "wf-2", TenantID: "tenant-1", EntityType: models.EntityInvoice, EntityID: "inv-1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionCompleted, result.Status)
	assert.Equal(t, 1, result.StepsExecuted)
	f.email.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ResolverFailureFinalizesFailed(t *testing.T) {
	t.Parallel()

	resolver := stubResolver{err: persistence.ErrEntityNotFound}
	f := newEngineFixture(resolver, DefaultConfig())

	f.workflows.On("ByID", mock.Anything, "wf-1").Return(thankYouWorkflow(), nil)
	f.workflows.On("RecordRun", mock.Anything, "wf-1", false, mock.Anything).Return(nil)
	f.executions.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.executions.On("Finalize", mock.Anything, mock.Anything, models.ExecutionFailed, mock.Anything, mock.Anything).
		Return(nil)

	result, err := f.engine.Run(context.Background(), &Request{
		WorkflowID: "wf-1", TenantID: "tenant-1", EntityType: models.EntityJob, EntityID: "job-1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionFailed, result.Status)
	assert.Zero(t, result.StepsExecuted)
	f.sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_MissingWorkflowFailsWithoutLogRecord(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(stubResolver{}, DefaultConfig())
	f.workflows.On("ByID", mock.Anything, "wf-gone").Return(nil, persistence.ErrWorkflowNotFound)

	_, err := f.engine.Run(context.Background(), &Request{WorkflowID: "wf-gone"})
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
	f.executions.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}
