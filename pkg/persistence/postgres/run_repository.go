package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/persistence"
)

// RunRepository handles workflow run database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

const runColumns = `
	id
  , workflow_id
  , trigger_event
  , trigger_payload
  , status
  , current_node_id
  , execution_path
  , error_message
  , started_at
  , completed_at
`

func (r *RunRepository) scanRun(row rowScanner) (*models.WorkflowRun, error) {
	run := &models.WorkflowRun{}

	var (
		payloadJSON  []byte
		pathJSON     []byte
		errorMessage sql.NullString
	)

	err := row.Scan(
		&run.ID,
		&run.WorkflowID,
		&run.TriggerEvent,
		&payloadJSON,
		&run.Status,
		&run.CurrentNodeID,
		&pathJSON,
		&errorMessage,
		&run.StartedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &run.TriggerPayload); err != nil {
			return nil, fmt.Errorf("failed to decode trigger payload: %w", err)
		}
	}

	run.ExecutionPath = []string{}
	if len(pathJSON) > 0 {
		if err := json.Unmarshal(pathJSON, &run.ExecutionPath); err != nil {
			return nil, fmt.Errorf("failed to decode execution path: %w", err)
		}
	}

	if errorMessage.Valid {
		run.ErrorMessage = errorMessage.String
	}

	return run, nil
}

// CreateRun inserts a new workflow run.
func (r *RunRepository) CreateRun(ctx context.Context, run *models.WorkflowRun) error {
	payloadJSON, err := json.Marshal(run.TriggerPayload)
	if err != nil {
		return fmt.Errorf("failed to encode trigger payload: %w", err)
	}

	pathJSON, err := json.Marshal(run.ExecutionPath)
	if err != nil {
		return fmt.Errorf("failed to encode execution path: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, run.ID, run.WorkflowID, run.TriggerEvent, payloadJSON, run.Status,
		run.CurrentNodeID, pathJSON, nullableString(run.ErrorMessage), run.StartedAt, run.CompletedAt)
	if err != nil {
		return persistence.NewRunError("Create", run.ID, err)
	}

	return nil
}

// UpdateRun persists the mutable fields of a run. The trigger payload is an
// immutable seed and is never rewritten.
func (r *RunRepository) UpdateRun(ctx context.Context, run *models.WorkflowRun) error {
	pathJSON, err := json.Marshal(run.ExecutionPath)
	if err != nil {
		return fmt.Errorf("failed to encode execution path: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_runs
		SET status = $2,
			current_node_id = $3,
			execution_path = $4,
			error_message = $5,
			completed_at = $6
		WHERE id = $1
	`, run.ID, run.Status, run.CurrentNodeID, pathJSON, nullableString(run.ErrorMessage), run.CompletedAt)
	if err != nil {
		return persistence.NewRunError("Update", run.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRunError("Update", run.ID, err)
	}

	if affected == 0 {
		return persistence.NewRunError("Update", run.ID, persistence.ErrRunNotFound)
	}

	return nil
}

// RunByID returns a run by its ID.
func (r *RunRepository) RunByID(ctx context.Context, id string) (*models.WorkflowRun, error) {
	run, err := r.scanRun(r.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM workflow_runs WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow run: %w", err)
	}

	return run, nil
}

// RunsByWorkflow returns all runs of a workflow, newest first.
func (r *RunRepository) RunsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM workflow_runs
		WHERE workflow_id = $1
		ORDER BY started_at DESC
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow runs: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow runs: %w", err)
	}

	return runs, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: s, Valid: true}
}
