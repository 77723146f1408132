package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/fieldline/automation/pkg/cmd"
	"github.com/fieldline/automation/pkg/log"
	"github.com/fieldline/automation/pkg/sources/scheduler"
	"github.com/fieldline/automation/pkg/trigger"
)

func main() {
	command := &cli.Command{
		Name:                  "fieldline-listener",
		EnableShellCompletion: true,
		Usage:                 "Match entity change events against workflow triggers",
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
			&cli.StringFlag{
				Name:    "tenant-id",
				Usage:   "Tenant to serve (empty serves all tenants on the feed)",
				Sources: cli.EnvVars("TENANT_ID"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the shared dedup window",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "dedup-window",
				Usage:   "Suppress repeat fires of the same workflow for the same entity (0 disables)",
				Value:   0,
				Sources: cli.EnvVars("DEDUP_WINDOW"),
			},
			&cli.DurationFlag{
				Name:    "reminder-lead-time",
				Usage:   "How far ahead of an appointment the reminder fires",
				Value:   24 * time.Hour,
				Sources: cli.EnvVars("REMINDER_LEAD_TIME"),
			},
			&cli.StringFlag{
				Name:    "reminder-cron",
				Usage:   "Cron spec for the appointment reminder scan",
				Value:   "*/15 * * * *",
				Sources: cli.EnvVars("REMINDER_CRON"),
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
			logger := log.WithModule("fieldline-listener")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing Fieldline trigger listener")

			eventBus := cmd.NewEventBus(command.String("event-bus"), "fieldline-listener", logger)
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

			reminders := scheduler.NewSource(logger, store.Entities(), eventBus, scheduler.Config{
				TenantID: command.String("tenant-id"),
				LeadTime: command.Duration("reminder-lead-time"),
				CronSpec: command.String("reminder-cron"),
			})
			if err := reminders.Start(ctx); err != nil {
				return err
			}

			defer func() {
				if err := reminders.Stop(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to stop reminder scheduler", "error", err)
				}
			}()

			listener := trigger.NewListener(
				logger,
				store.Workflows(),
				eventBus,
				cmd.NewDeduper(command.String("redis-url")),
				trigger.ListenerConfig{
					TenantID:    command.String("tenant-id"),
					DedupWindow: command.Duration("dedup-window"),
				},
			)

			if err := listener.Start(ctx); err != nil {
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
