package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/persistence"
)

// StepRepository handles scheduled step database operations.
type StepRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStepRepository creates a new step repository.
func NewStepRepository(db *sql.DB, logger *slog.Logger) *StepRepository {
	return &StepRepository{db: db, logger: logger}
}

const stepColumns = `
	id
  , workflow_run_id
  , node_id
  , scheduled_for
  , payload
  , status
  , error_message
  , processed_at
  , created_at
`

func (r *StepRepository) scanStep(row rowScanner) (*models.ScheduledStep, error) {
	step := &models.ScheduledStep{}

	var (
		payloadJSON  []byte
		errorMessage sql.NullString
	)

	err := row.Scan(
		&step.ID,
		&step.WorkflowRunID,
		&step.NodeID,
		&step.ScheduledFor,
		&payloadJSON,
		&step.Status,
		&errorMessage,
		&step.ProcessedAt,
		&step.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &step.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode step payload: %w", err)
		}
	}

	if errorMessage.Valid {
		step.ErrorMessage = errorMessage.String
	}

	return step, nil
}

// CreateStep inserts a new scheduled step.
func (r *StepRepository) CreateStep(ctx context.Context, step *models.ScheduledStep) error {
	payloadJSON, err := json.Marshal(step.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode step payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scheduled_steps (`+stepColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, step.ID, step.WorkflowRunID, step.NodeID, step.ScheduledFor, payloadJSON,
		step.Status, nullableString(step.ErrorMessage), step.ProcessedAt, step.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create scheduled step: %w", err)
	}

	return nil
}

// StepByID returns a scheduled step by its ID.
func (r *StepRepository) StepByID(ctx context.Context, id string) (*models.ScheduledStep, error) {
	step, err := r.scanStep(r.db.QueryRowContext(ctx, `
		SELECT `+stepColumns+` FROM scheduled_steps WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrStepNotFound
		}

		return nil, fmt.Errorf("failed to scan scheduled step: %w", err)
	}

	return step, nil
}

// ClaimDueSteps atomically moves up to limit due pending steps to the
// processing state and returns them, oldest due first. SKIP LOCKED keeps
// overlapping pollers from claiming the same rows.
func (r *StepRepository) ClaimDueSteps(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE scheduled_steps
		SET status = 'processing'
		WHERE id IN (
			SELECT id FROM scheduled_steps
			WHERE status = 'pending' AND scheduled_for <= $1
			ORDER BY scheduled_for ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+stepColumns+`
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due steps: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	steps := make([]*models.ScheduledStep, 0)

	for rows.Next() {
		step, err := r.scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claimed step: %w", err)
		}

		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claimed steps: %w", err)
	}

	// RETURNING does not guarantee order; claimed batches are small enough
	// to sort here instead of forcing an extra query.
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].ScheduledFor.Before(steps[j].ScheduledFor)
	})

	return steps, nil
}

// MarkStepCompleted finishes a processing step.
func (r *StepRepository) MarkStepCompleted(ctx context.Context, id string, processedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_steps
		SET status = 'completed', processed_at = $2
		WHERE id = $1 AND status = 'processing'
	`, id, processedAt)
	if err != nil {
		return fmt.Errorf("failed to complete scheduled step: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrStepNotClaimable
	}

	return nil
}

// MarkStepFailed terminates a processing step with an error message.
func (r *StepRepository) MarkStepFailed(ctx context.Context, id string, errorMessage string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_steps
		SET status = 'failed', error_message = $2, processed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`, id, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to fail scheduled step: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrStepNotClaimable
	}

	return nil
}

// DeleteCompletedBefore removes completed steps processed before the cutoff.
func (r *StepRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM scheduled_steps
		WHERE status = 'completed' AND processed_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete completed steps: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return deleted, nil
}
