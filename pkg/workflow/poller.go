package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/persistence"
)

// pollBatchSize bounds how many due steps one poll cycle claims.
const pollBatchSize = 50

// Poller claims due scheduled steps and resumes their suspended runs. Claims
// are atomic, so any number of pollers may overlap safely.
type Poller struct {
	persistence persistence.Persistence
	coordinator *Coordinator
	logger      *slog.Logger
}

// PollResult summarizes one poll cycle.
type PollResult struct {
	Processed int       `json:"processed"`
	Errors    int       `json:"errors"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPoller creates a scheduler poller.
func NewPoller(p persistence.Persistence, coordinator *Coordinator, logger *slog.Logger) *Poller {
	return &Poller{
		persistence: p,
		coordinator: coordinator,
		logger:      logger.With("module", "poller"),
	}
}

// RunOnce claims one batch of due steps, resumes each suspended run, and
// prunes completed steps past their retention window.
func (p *Poller) RunOnce(ctx context.Context) (*PollResult, error) {
	now := time.Now().UTC()

	steps, err := p.persistence.StepRepository().ClaimDueSteps(ctx, now, pollBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due steps: %w", err)
	}

	result := &PollResult{Timestamp: now}

	for _, step := range steps {
		if err := p.processStep(ctx, step); err != nil {
			result.Errors++

			p.logger.ErrorContext(ctx, "Failed to process scheduled step",
				"step_id", step.ID,
				"run_id", step.WorkflowRunID,
				"error", err,
			)

			continue
		}

		result.Processed++
	}

	pruned, err := p.persistence.StepRepository().DeleteCompletedBefore(ctx, now.Add(-models.StepRetentionPeriod))
	if err != nil {
		return result, fmt.Errorf("failed to prune completed steps: %w", err)
	}

	if pruned > 0 {
		p.logger.InfoContext(ctx, "Pruned completed steps", "count", pruned)
	}

	return result, nil
}

// processStep resumes the run a claimed step belongs to and settles the step.
// A run that terminated while its step waited makes the step a no-op.
func (p *Poller) processStep(ctx context.Context, step *models.ScheduledStep) error {
	run, err := p.persistence.RunRepository().RunByID(ctx, step.WorkflowRunID)
	if err != nil {
		if markErr := p.persistence.StepRepository().MarkStepFailed(ctx, step.ID, err.Error()); markErr != nil {
			return markErr
		}

		return fmt.Errorf("failed to load run for step: %w", err)
	}

	if run.IsTerminal() {
		p.logger.InfoContext(ctx, "Skipping step for terminal run",
			"step_id", step.ID,
			"run_id", run.ID,
			"run_status", run.Status,
		)

		return p.persistence.StepRepository().MarkStepCompleted(ctx, step.ID, time.Now().UTC())
	}

	if err := p.coordinator.Resume(ctx, run, step.NodeID, step.Payload); err != nil {
		if markErr := p.persistence.StepRepository().MarkStepFailed(ctx, step.ID, err.Error()); markErr != nil {
			return markErr
		}

		return err
	}

	if run.Status == models.RunStatusFailed {
		return p.failStep(ctx, run, step)
	}

	return p.persistence.StepRepository().MarkStepCompleted(ctx, step.ID, time.Now().UTC())
}

// failStep settles a step whose resume failed. The step keeps the raw
// failure reason; the run's error message is wrapped so operators can tell a
// resume failure apart from a first-burst failure.
func (p *Poller) failStep(ctx context.Context, run *models.WorkflowRun, step *models.ScheduledStep) error {
	reason := run.ErrorMessage

	run.ErrorMessage = fmt.Sprintf("scheduled step failed: %s", reason)
	if err := p.persistence.RunRepository().UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to record run failure: %w", err)
	}

	if err := p.persistence.StepRepository().MarkStepFailed(ctx, step.ID, reason); err != nil {
		return err
	}

	return fmt.Errorf("scheduled step failed: %s", reason)
}
