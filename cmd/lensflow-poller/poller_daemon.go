package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lensflow/lensflow/pkg/dispatch"
	"github.com/lensflow/lensflow/pkg/otelhelper"
	"github.com/lensflow/lensflow/pkg/persistence"
	"github.com/lensflow/lensflow/pkg/registry"
	"github.com/lensflow/lensflow/pkg/workflow"
)

// PollerDaemon drives the scheduled-step poller on a cron cadence until the
// process receives SIGINT or SIGTERM.
type PollerDaemon struct {
	id       string
	logger   *slog.Logger
	poller   *workflow.Poller
	tracer   trace.Tracer
	schedule string
	cron     *cron.Cron
}

func NewPollerDaemon(
	id string,
	p persistence.Persistence,
	reg *registry.Registry,
	tracer trace.Tracer,
	schedule string,
	logger *slog.Logger,
) (*PollerDaemon, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, err
	}

	actionDispatcher := dispatch.NewDispatcher(reg, logger)
	coordinator := workflow.NewCoordinator(p, actionDispatcher, logger)

	return &PollerDaemon{
		id:       id,
		logger:   logger.With("poller_id", id),
		poller:   workflow.NewPoller(p, coordinator, logger),
		tracer:   tracer,
		schedule: schedule,
	}, nil
}

func (d *PollerDaemon) Start(ctx context.Context) error {
	d.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := d.cron.AddFunc(d.schedule, func() {
		d.runOnce(ctx)
	})
	if err != nil {
		return err
	}

	d.cron.Start()
	d.logger.InfoContext(ctx, "Poller started", "schedule", d.schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		d.logger.InfoContext(ctx, "Shutting down poller...")
	case <-ctx.Done():
	}

	stopCtx := d.cron.Stop()
	<-stopCtx.Done()

	return nil
}

func (d *PollerDaemon) runOnce(ctx context.Context) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "poller.run_once")
	defer span.End()

	result, err := d.poller.RunOnce(ctx)
	if err != nil {
		otelhelper.SetError(span, err)
		d.logger.ErrorContext(ctx, "Poll cycle failed", "error", err)

		return
	}

	span.SetAttributes(
		attribute.Int("lensflow.poll.processed", result.Processed),
		attribute.Int("lensflow.poll.errors", result.Errors),
	)

	if result.Processed > 0 || result.Errors > 0 {
		d.logger.InfoContext(ctx, "Poll cycle finished",
			"processed", result.Processed,
			"errors", result.Errors,
		)
	}
}
