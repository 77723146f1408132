// Package main provides the Fieldline admin API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/fieldline/automation/pkg/engine"
	"github.com/fieldline/automation/pkg/persistence"
	"github.com/fieldline/automation/pkg/resilience"
	"github.com/fieldline/automation/pkg/web"
	"github.com/fieldline/automation/pkg/workflow"
)

type API struct {
	logger     *slog.Logger
	store      persistence.Persistence
	engine     *engine.Engine
	resilience *resilience.Registry
	validate   *validator.Validate
}

func NewAPI(
	log *slog.Logger,
	store persistence.Persistence,
	runner *engine.Engine,
	registry *resilience.Registry,
) *API {
	return &API{
		logger:     log,
		store:      store,
		engine:     runner,
		resilience: registry,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	workflows := workflow.NewRepository(a.store)
	handlers := web.NewAPIHandlers(workflows, a.store.Executions(), a.store.Notifications(), a.engine, a.resilience, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Fieldline API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Patch("/:id/status", handlers.UpdateWorkflowStatus)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Post("/:id/test", handlers.TestWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	app.Get("/executions/:id", handlers.GetExecution)
	app.Get("/notifications", handlers.GetNotifications)
	app.Get("/breakers", handlers.GetBreakers)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
