package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/fieldline/automation/pkg/cmd"
	"github.com/fieldline/automation/pkg/engine"
	"github.com/fieldline/automation/pkg/eventbus"
	"github.com/fieldline/automation/pkg/log"
	"github.com/fieldline/automation/pkg/resilience"
	"github.com/fieldline/automation/pkg/steps"
	"github.com/fieldline/automation/pkg/variables"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "fieldline-api",
		Usage:                 "Create and manage automation workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type for run lifecycle events (kafka, gochannel). Empty disables publishing.",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
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
			logger := log.WithModule("fieldline-api")

			logger.InfoContext(ctx, "Initializing Fieldline API")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			// Manual runs through the API publish the same lifecycle events
			// as worker runs when a bus is configured.
			var bus eventbus.EventBus
			if busType := command.String("event-bus"); busType != "" {
				bus = cmd.NewEventBus(busType, "fieldline-api", logger)
				defer func() {
					if err := bus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

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
				bus,
				engine.DefaultConfig(),
			)

			api := NewAPI(logger, store, runner, registry)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
