// Command lensflow-trigger fires platform events at a running engine, either
// through the Redis trigger queue or directly against the database.
package main

import (
	"context"
	"os"

	"github.com/lensflow/lensflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "lensflow-trigger",
		Usage:                 "Publish trigger events and inspect the event catalog",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			{
				Name:    "send",
				Aliases: []string{"s"},
				Usage:   "Push a trigger event onto the Redis queue",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "event",
						Aliases:  []string{"e"},
						Usage:    "Trigger event name (see 'list')",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "payload",
						Usage:   "Event payload as a JSON object",
						Value:   "{}",
						Aliases: []string{"d"},
					},
					&cli.StringFlag{
						Name:    "queue-addr",
						Usage:   "Redis address",
						Value:   "localhost:6379",
						Sources: cli.EnvVars("QUEUE_ADDR"),
					},
					&cli.StringFlag{
						Name:     "queue-name",
						Usage:    "Redis list the engine consumes trigger events from",
						Required: true,
						Sources:  cli.EnvVars("QUEUE_NAME"),
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					return SendEvent(ctx, command)
				},
			},
			{
				Name:    "dispatch",
				Aliases: []string{"r"},
				Usage:   "Dispatch an event directly against the database, running matched workflows in-process",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "event",
						Aliases:  []string{"e"},
						Usage:    "Trigger event name (see 'list')",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "payload",
						Usage:   "Event payload as a JSON object",
						Value:   "{}",
						Aliases: []string{"d"},
					},
					&cli.StringFlag{
						Name:     "database-url",
						Usage:    "Database connection URL for persistence",
						Required: true,
						Sources:  cli.EnvVars("DATABASE_URL"),
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

					return DispatchEvent(ctx, command)
				},
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List the trigger events workflows can subscribe to",
				Action: func(ctx context.Context, command *cli.Command) error {
					return ListEvents(command)
				},
			},
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		log.WithModule("trigger").Error("Command failed", "error", err)
		os.Exit(1)
	}
}
