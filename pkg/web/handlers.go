// Package web provides the HTTP admin surface: workflow management, manual
// and test runs, and execution log queries.
package web

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/fieldline/automation/pkg/engine"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
	"github.com/fieldline/automation/pkg/resilience"
	"github.com/fieldline/automation/pkg/workflow"
)

type APIHandlers struct {
	workflows     *workflow.Repository
	executions    persistence.ExecutionLogRepository
	notifications persistence.NotificationRepository
	engine        *engine.Engine
	resilience    *resilience.Registry
	validator     *validator.Validate
}

func NewAPIHandlers(
	workflows *workflow.Repository,
	executions persistence.ExecutionLogRepository,
	notifications persistence.NotificationRepository,
	runner *engine.Engine,
	registry *resilience.Registry,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflows:     workflows,
		executions:    executions,
		notifications: notifications,
		engine:        runner,
		resilience:    registry,
		validator:     validate,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id query parameter is required")
	}

	workflows, err := h.workflows.FetchAll(c.Context(), tenantID)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	found, err := h.workflows.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var definition models.Workflow
	if err := json.Unmarshal(c.Body(), &definition); err != nil {
		return badRequest(c, "Invalid workflow payload: "+err.Error())
	}

	created, err := h.workflows.Create(c.Context(), &definition)
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var definition models.Workflow
	if err := json.Unmarshal(c.Body(), &definition); err != nil {
		return badRequest(c, "Invalid workflow payload: "+err.Error())
	}

	updated, err := h.workflows.Update(c.Context(), c.Params("id"), &definition)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return handleStoreError(c, err)
		}

		return badRequest(c, err.Error())
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflows.Delete(c.Context(), c.Params("id")); err != nil {
		return handleStoreError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) UpdateWorkflowStatus(c fiber.Ctx) error {
	var req UpdateWorkflowStatusRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "Invalid status payload: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflows.SetStatus(c.Context(), c.Params("id"), req.Status)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(updated)
}

// ExecuteWorkflow triggers one synchronous run against a real entity,
// bypassing change-feed matching.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteWorkflowRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "Invalid execute payload: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.engine.ExecuteWorkflow(c.Context(), c.Params("id"), req.EntityType, req.EntityID)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(runResponse(result))
}

// TestWorkflow runs the workflow against sample variables without touching
// production counters.
func (h *APIHandlers) TestWorkflow(c fiber.Ctx) error {
	var req TestWorkflowRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return badRequest(c, "Invalid test payload: "+err.Error())
		}
	}

	result, err := h.engine.TestWorkflow(c.Context(), c.Params("id"), req.Variables)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(runResponse(result))
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit: "+err.Error())
		}

		limit = parsed
	}

	// Reject queries for unknown workflows instead of returning an empty
	// list.
	if _, err := h.workflows.FetchByID(c.Context(), c.Params("id")); err != nil {
		return handleStoreError(c, err)
	}

	records, err := h.executions.ByWorkflow(c.Context(), c.Params("id"), limit)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(fiber.Map{"executions": records})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	record, err := h.executions.ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(record)
}

// GetNotifications lists a tenant's unread in-app notifications, the ones
// notify steps produce.
func (h *APIHandlers) GetNotifications(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id query parameter is required")
	}

	notifications, err := h.notifications.Unread(c.Context(), tenantID)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(fiber.Map{"notifications": notifications})
}

// GetBreakers exposes circuit breaker state for diagnostics.
func (h *APIHandlers) GetBreakers(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"breakers": h.resilience.Stats()})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.workflows.HealthCheck(c.Context())

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{"persistence": message},
	}

	if !healthy {
		response.Status = "unhealthy"

		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}

func runResponse(result *engine.Result) RunResponse {
	return RunResponse{
		ExecutionID:   result.ExecutionID,
		Status:        result.Status,
		StepsExecuted: result.StepsExecuted,
		DurationMS:    result.Duration.Milliseconds(),
	}
}
