package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/lensflow/lensflow/pkg/cmd"
	"github.com/lensflow/lensflow/pkg/log"
	"github.com/lensflow/lensflow/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "lensflow-poller",
		Usage:                 "Resume suspended workflow runs whose delays are due",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "poller-id",
				Aliases: []string{"id"},
				Usage:   "Custom poller ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("POLLER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "poll-schedule",
				Usage:   "Cron expression controlling how often due steps are claimed",
				Value:   "* * * * *",
				Sources: cli.EnvVars("POLL_SCHEDULE"),
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

			tracerProvider, err := otelhelper.InitTracer(ctx, "lensflow-poller")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					slog.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			pollerID := command.String("poller-id")
			if pollerID == "" {
				pollerID = "poller-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("poller").With("poller_id", pollerID)

			logger.InfoContext(ctx, "Initializing Lensflow Poller")

			registry := cmd.NewRegistry(logger)

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			daemon, err := NewPollerDaemon(
				pollerID,
				persistence,
				registry,
				tracerProvider.Tracer("lensflow-poller"),
				command.String("poll-schedule"),
				logger,
			)
			if err != nil {
				return fmt.Errorf("failed to create poller daemon: %w", err)
			}

			return daemon.Start(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
