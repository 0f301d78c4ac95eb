package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/lensflow/lensflow/pkg/cmd"
	"github.com/lensflow/lensflow/pkg/log"
	"github.com/lensflow/lensflow/pkg/receivers/queue"
)

const defaultPort = 9090

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "lensflow-api",
		Usage:                 "Create and manage delivery workflows",
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
				Usage:   "Event bus provider for trigger events",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "queue-addr",
				Usage:   "Redis address for the trigger queue receiver",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("QUEUE_ADDR"),
			},
			&cli.StringFlag{
				Name:    "queue-name",
				Usage:   "Redis list to consume trigger events from (disabled when empty)",
				Value:   "",
				Sources: cli.EnvVars("QUEUE_NAME"),
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

			logger.InfoContext(ctx, "Initializing Lensflow API")

			registry := cmd.NewRegistry(logger)
			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				persistence,
				registry,
				eventBus,
			)

			if err := api.SubscribeDispatcher(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to subscribe trigger dispatcher", "error", err)

				return err
			}

			if queueName := command.String("queue-name"); queueName != "" {
				receiver, err := queue.NewReceiver(queue.Config{
					Addr:  command.String("queue-addr"),
					Queue: queueName,
				}, eventBus, logger)
				if err != nil {
					return err
				}

				if err := receiver.Start(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to start queue receiver", "error", err)

					return err
				}

				defer func() {
					if err := receiver.Stop(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to stop queue receiver", "error", err)
					}
				}()
			}

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
