package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/persistence"
)

// GraphRepository handles workflow graph database operations.
type GraphRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewGraphRepository creates a new graph repository.
func NewGraphRepository(db *sql.DB, logger *slog.Logger) *GraphRepository {
	return &GraphRepository{db: db, logger: logger}
}

const workflowColumns = `
	id
  , name
  , trigger_event
  , is_active
  , conditions
  , created_at
  , updated_at
  , deleted_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *GraphRepository) scanWorkflow(row rowScanner) (*models.Workflow, error) {
	workflow := &models.Workflow{}

	var conditionsJSON []byte

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.TriggerEvent,
		&workflow.IsActive,
		&conditionsJSON,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
		&workflow.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(conditionsJSON) > 0 {
		if err := json.Unmarshal(conditionsJSON, &workflow.Conditions); err != nil {
			return nil, fmt.Errorf("failed to decode workflow conditions: %w", err)
		}
	}

	return workflow, nil
}

// Workflows returns all workflows that are not soft deleted.
func (r *GraphRepository) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// WorkflowByID returns a workflow by its ID with nodes and edges loaded.
func (r *GraphRepository) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1 AND deleted_at IS NULL
	`

	workflow, err := r.scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	workflow.Nodes, err = r.NodesByWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.Edges, err = r.EdgesByWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// ActiveWorkflowsByTrigger returns active workflows listening on the given
// trigger event, without their graphs loaded.
func (r *GraphRepository) ActiveWorkflowsByTrigger(ctx context.Context, event models.TriggerEvent) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE trigger_event = $1 AND is_active AND deleted_at IS NULL
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, event)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows by trigger: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// NodesByWorkflow returns the nodes of a workflow.
func (r *GraphRepository) NodesByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowNode, error) {
	query := `
		SELECT workflow_id, id, node_type, action_type, config, position_x, position_y
		FROM workflow_nodes
		WHERE workflow_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow nodes: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	nodes := make([]*models.WorkflowNode, 0)

	for rows.Next() {
		node := &models.WorkflowNode{}

		var (
			actionType sql.NullString
			configJSON []byte
		)

		err := rows.Scan(
			&node.WorkflowID,
			&node.ID,
			&node.Type,
			&actionType,
			&configJSON,
			&node.PositionX,
			&node.PositionY,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow node: %w", err)
		}

		if actionType.Valid {
			node.ActionType = models.ActionType(actionType.String)
		}

		if len(configJSON) > 0 {
			if err := json.Unmarshal(configJSON, &node.Config); err != nil {
				return nil, fmt.Errorf("failed to decode node config: %w", err)
			}
		}

		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow nodes: %w", err)
	}

	return nodes, nil
}

// EdgesByWorkflow returns the edges of a workflow ordered by sort_order so
// label tie-breaks are deterministic.
func (r *GraphRepository) EdgesByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error) {
	query := `
		SELECT workflow_id, id, source_node_id, target_node_id, edge_label, sort_order
		FROM workflow_edges
		WHERE workflow_id = $1
		ORDER BY sort_order ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow edges: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	edges := make([]*models.WorkflowEdge, 0)

	for rows.Next() {
		edge := &models.WorkflowEdge{}

		err := rows.Scan(
			&edge.WorkflowID,
			&edge.ID,
			&edge.SourceNodeID,
			&edge.TargetNodeID,
			&edge.Label,
			&edge.SortOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow edge: %w", err)
		}

		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow edges: %w", err)
	}

	return edges, nil
}

// SaveWorkflow upserts a workflow together with its full node and edge set
// in one transaction. Nodes keep their editor-assigned ids, so edges are
// written against stable endpoints and never silently dropped.
func (r *GraphRepository) SaveWorkflow(ctx context.Context, workflow *models.Workflow, nodes []*models.WorkflowNode, edges []*models.WorkflowEdge) error {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	conditionsJSON, err := json.Marshal(workflow.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode workflow conditions: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, name, trigger_event, is_active, conditions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			trigger_event = EXCLUDED.trigger_event,
			is_active = EXCLUDED.is_active,
			conditions = EXCLUDED.conditions,
			updated_at = EXCLUDED.updated_at
	`, workflow.ID, workflow.Name, workflow.TriggerEvent, workflow.IsActive, conditionsJSON, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM workflow_edges WHERE workflow_id = $1`, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to clear workflow edges: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM workflow_nodes WHERE workflow_id = $1`, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to clear workflow nodes: %w", err)
	}

	for _, node := range nodes {
		configJSON, err := json.Marshal(node.Config)
		if err != nil {
			return fmt.Errorf("failed to encode config for node %s: %w", node.ID, err)
		}

		var actionType sql.NullString
		if node.ActionType != "" {
			actionType = sql.NullString{String: string(node.ActionType), Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_nodes (workflow_id, id, node_type, action_type, config, position_x, position_y)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, workflow.ID, node.ID, node.Type, actionType, configJSON, node.PositionX, node.PositionY)
		if err != nil {
			return fmt.Errorf("failed to save node %s: %w", node.ID, err)
		}
	}

	for _, edge := range edges {
		if edge.ID == "" {
			edge.ID = uuid.New().String()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_edges (workflow_id, id, source_node_id, target_node_id, edge_label, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, workflow.ID, edge.ID, edge.SourceNodeID, edge.TargetNodeID, edge.Label, edge.SortOrder)
		if err != nil {
			return fmt.Errorf("failed to save edge %s: %w", edge.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit workflow save: %w", err)
	}

	return nil
}

// DeleteWorkflow soft deletes a workflow by setting deleted_at.
func (r *GraphRepository) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE workflows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}
