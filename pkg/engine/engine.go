// Package engine runs workflows: it owns the execution lifecycle from the
// started log record through step iteration to the finalized outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fieldline/automation/pkg/eventbus"
	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/otelhelper"
	"github.com/fieldline/automation/pkg/persistence"
)

// VariableResolver builds the substitution map for a run's target entity.
type VariableResolver interface {
	Resolve(ctx context.Context, entityType, entityID, tenantID string) (map[string]string, error)
}

// StepExecutor runs one step and reports whether the run should continue.
type StepExecutor interface {
	Execute(ctx context.Context, step models.Step, execCtx *models.ExecutionContext) (bool, error)
}

// Config tunes run behavior.
type Config struct {
	// ContinueOnStepError keeps executing remaining steps after a step
	// fails. The run is still finalized as failed.
	ContinueOnStepError bool
}

func DefaultConfig() Config {
	return Config{ContinueOnStepError: true}
}

// Request describes one run to perform.
type Request struct {
	WorkflowID     string
	TriggerKind    models.TriggerType
	EntityType     string
	EntityID       string
	TenantID       string
	TriggerPayload map[string]any

	// Variables, when set, bypasses the resolver. Used by test runs.
	Variables map[string]string
	TestMode  bool
}

// Result summarizes a finished run.
type Result struct {
	ExecutionID   string
	Status        models.ExecutionStatus
	StepsExecuted int
	Duration      time.Duration
}

// Engine executes workflow runs sequentially step by step. Concurrent runs
// share nothing but the read-only workflow definition, the named breakers,
// and the persisted counters.
type Engine struct {
	logger     *slog.Logger
	workflows  persistence.WorkflowRepository
	executions persistence.ExecutionLogRepository
	resolver   VariableResolver
	executor   StepExecutor
	bus        eventbus.EventBus
	tracer     trace.Tracer
	config     Config
}

func New(
	logger *slog.Logger,
	workflows persistence.WorkflowRepository,
	executions persistence.ExecutionLogRepository,
	resolver VariableResolver,
	executor StepExecutor,
	bus eventbus.EventBus,
	config Config,
) *Engine {
	return &Engine{
		logger:     logger.With("module", "engine"),
		workflows:  workflows,
		executions: executions,
		resolver:   resolver,
		executor:   executor,
		bus:        bus,
		tracer:     noop.NewTracerProvider().Tracer("engine"),
		config:     config,
	}
}

// WithTracer replaces the no-op tracer installed by New.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	e.tracer = tracer

	return e
}

// ExecuteWorkflow triggers a single run directly, bypassing change-feed
// matching. Used by admin actions and the HTTP API.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflowID, entityType, entityID string) (*Result, error) {
	workflow, err := e.workflows.ByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	return e.Run(ctx, &Request{
		WorkflowID:     workflowID,
		TriggerKind:    workflow.TriggerType,
		EntityType:     entityType,
		EntityID:       entityID,
		TenantID:       workflow.TenantID,
		TriggerPayload: map[string]any{"manual": true},
	})
}

// TestWorkflow runs the workflow against caller-provided sample variables.
// The run is logged with the test flag set and leaves counters untouched.
func (e *Engine) TestWorkflow(ctx context.Context, workflowID string, sampleVars map[string]string) (*Result, error) {
	workflow, err := e.workflows.ByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if sampleVars == nil {
		sampleVars = map[string]string{}
	}

	return e.Run(ctx, &Request{
		WorkflowID:     workflowID,
		TriggerKind:    workflow.TriggerType,
		TenantID:       workflow.TenantID,
		TriggerPayload: map[string]any{"manual": true, "test": true},
		Variables:      sampleVars,
		TestMode:       true,
	})
}

// Run performs one workflow run. The returned error reflects infrastructure
// failures (workflow missing, log append failed); step failures finalize
// the run as failed but return a nil error with the failed Result.
func (e *Engine) Run(ctx context.Context, request *Request) (*Result, error) {
	workflow, err := e.workflows.ByID(ctx, request.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", request.WorkflowID, err)
	}

	execCtx := &models.ExecutionContext{
		ID:          uuid.New().String(),
		WorkflowID:  workflow.ID,
		TriggerKind: request.TriggerKind,
		EntityType:  request.EntityType,
		EntityID:    request.EntityID,
		TenantID:    request.TenantID,
		Variables:   request.Variables,
		TestMode:    request.TestMode,
		StartedAt:   time.Now().UTC(),
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.run",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.ExecutionIDKey, execCtx.ID),
		attribute.String(otelhelper.TriggerKindKey, string(request.TriggerKind)),
		attribute.String(otelhelper.EntityTypeKey, request.EntityType),
		attribute.String(otelhelper.EntityIDKey, request.EntityID),
		attribute.String(otelhelper.TenantIDKey, request.TenantID),
	)
	defer span.End()

	logger := e.logger.With(
		"workflow_id", workflow.ID,
		"execution_id", execCtx.ID,
		"trigger_kind", request.TriggerKind,
		"test_mode", request.TestMode,
	)
	logger.InfoContext(ctx, "Starting workflow run")

	record := &models.ExecutionRecord{
		ID:             execCtx.ID,
		WorkflowID:     workflow.ID,
		Status:         models.ExecutionStarted,
		TriggerKind:    request.TriggerKind,
		TriggerPayload: request.TriggerPayload,
		TestMode:       request.TestMode,
		StartedAt:      execCtx.StartedAt,
	}
	if err := e.executions.Append(ctx, record); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to append execution record: %w", err)
	}

	e.publish(ctx, execCtx.ID, events.RunStarted{
		BaseEvent:   events.NewBaseEvent(events.RunStartedEvent, workflow.ID),
		ExecutionID: execCtx.ID,
		TriggerKind: request.TriggerKind,
		EntityID:    request.EntityID,
	})

	if execCtx.Variables == nil {
		vars, err := e.resolver.Resolve(ctx, request.EntityType, request.EntityID, request.TenantID)
		if err != nil {
			logger.ErrorContext(ctx, "Variable resolution failed", "error", err)

			return e.finish(ctx, span, workflow, execCtx, 0, []string{err.Error()})
		}

		execCtx.Variables = vars
	}

	stepsExecuted, stepErrors := e.runSteps(ctx, logger, workflow, execCtx)

	return e.finish(ctx, span, workflow, execCtx, stepsExecuted, stepErrors)
}

// runSteps iterates the workflow's steps in order. A condition evaluating
// false is the only silent early stop. Step failures are collected; whether
// they stop the iteration depends on ContinueOnStepError.
func (e *Engine) runSteps(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, execCtx *models.ExecutionContext) (int, []string) {
	var (
		executed   int
		stepErrors []string
	)

	for _, step := range workflow.Steps {
		if err := ctx.Err(); err != nil {
			stepErrors = append(stepErrors, fmt.Sprintf("run cancelled: %v", err))

			break
		}

		stepCtx, stepSpan := otelhelper.StartSpan(ctx, e.tracer, "engine.step",
			attribute.String(otelhelper.StepIDKey, step.ID),
			attribute.String(otelhelper.StepKindKey, string(step.Kind)),
		)

		keepGoing, err := e.executor.Execute(stepCtx, step, execCtx)

		executed++

		if err != nil {
			otelhelper.SetError(stepSpan, err)
			stepSpan.End()

			logger.ErrorContext(ctx, "Step failed",
				"step_id", step.ID, "step_kind", step.Kind, "error", err)
			stepErrors = append(stepErrors, fmt.Sprintf("step %s: %v", step.ID, err))

			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}

			if !e.config.ContinueOnStepError {
				break
			}

			continue
		}

		stepSpan.End()

		if !keepGoing {
			logger.InfoContext(ctx, "Run stopped by condition step", "step_id", step.ID)

			break
		}
	}

	return executed, stepErrors
}

// finish finalizes the log record, bumps counters for production runs, and
// publishes the terminal lifecycle event.
func (e *Engine) finish(ctx context.Context, span trace.Span, workflow *models.Workflow, execCtx *models.ExecutionContext, stepsExecuted int, stepErrors []string) (*Result, error) {
	completedAt := time.Now().UTC()
	duration := completedAt.Sub(execCtx.StartedAt)
	succeeded := len(stepErrors) == 0

	status := models.ExecutionCompleted
	errorMessage := ""

	if !succeeded {
		status = models.ExecutionFailed
		errorMessage = strings.Join(stepErrors, "; ")
	}

	// Finalization must not be lost to the cancellation that may have
	// aborted the run itself.
	finalizeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := e.executions.Finalize(finalizeCtx, execCtx.ID, status, errorMessage, completedAt); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to finalize execution record: %w", err)
	}

	if !execCtx.TestMode {
		if err := e.workflows.RecordRun(finalizeCtx, workflow.ID, succeeded, completedAt); err != nil {
			e.logger.ErrorContext(ctx, "Failed to record run counters",
				"workflow_id", workflow.ID, "error", err)
		}
	}

	if succeeded {
		e.publish(finalizeCtx, execCtx.ID, events.RunCompleted{
			BaseEvent:     events.NewBaseEvent(events.RunCompletedEvent, workflow.ID),
			ExecutionID:   execCtx.ID,
			StepsExecuted: stepsExecuted,
			Duration:      duration,
		})
	} else {
		otelhelper.SetError(span, errors.New(errorMessage))
		e.publish(finalizeCtx, execCtx.ID, events.RunFailed{
			BaseEvent:   events.NewBaseEvent(events.RunFailedEvent, workflow.ID),
			ExecutionID: execCtx.ID,
			Error:       errorMessage,
			Duration:    duration,
		})
	}

	e.logger.InfoContext(ctx, "Workflow run finished",
		"workflow_id", workflow.ID,
		"execution_id", execCtx.ID,
		"status", status,
		"steps_executed", stepsExecuted,
		"duration", duration.String())

	return &Result{
		ExecutionID:   execCtx.ID,
		Status:        status,
		StepsExecuted: stepsExecuted,
		Duration:      duration,
	}, nil
}

// publish is best effort. A bus outage must not fail an otherwise
// completed run.
func (e *Engine) publish(ctx context.Context, key string, event events.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish run event",
			"event_type", event.GetType(), "error", err)
	}
}
