package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/fieldline/automation/pkg/cmd"
	"github.com/fieldline/automation/pkg/engine"
	"github.com/fieldline/automation/pkg/log"
	"github.com/fieldline/automation/pkg/otelhelper"
	"github.com/fieldline/automation/pkg/resilience"
	"github.com/fieldline/automation/pkg/steps"
	"github.com/fieldline/automation/pkg/variables"
)

func main() {
	command := &cli.Command{
		Name:                  "fieldline-engine",
		EnableShellCompletion: true,
		Usage:                 "Start workers that execute workflow runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:    "continue-on-step-error",
				Usage:   "Keep executing remaining steps after a step fails",
				Value:   true,
				Sources: cli.EnvVars("CONTINUE_ON_STEP_ERROR"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("fieldline-engine")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing Fieldline engine worker")

			eventBus := cmd.NewEventBus(command.String("event-bus"), "fieldline-engine", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			sms, email := cmd.NewSenders(logger)
			registry := resilience.NewRegistry(resilience.DefaultConfig())
			executor := steps.NewExecutor(logger, sms, email, store.Notifications(), registry)
			resolver := variables.NewResolver(logger, store.Entities())

			runner := engine.New(
				logger,
				store.Workflows(),
				store.Executions(),
				resolver,
				executor,
				eventBus,
				engine.Config{ContinueOnStepError: command.Bool("continue-on-step-error")},
			)

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "fieldline-engine")
				if err != nil {
					logger.ErrorContext(ctx, "Failed to initialize tracing", "error", err)
				} else {
					runner.WithTracer(tracer)
				}
			}

			worker := engine.NewWorker(logger, runner, eventBus)

			if err := worker.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.InfoContext(ctx, "Shutting down")

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
