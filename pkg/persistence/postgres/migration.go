package postgres

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflows, graph topology, runs and scheduled steps.

			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				trigger_event VARCHAR(100) NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT true,
				conditions JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_trigger_event ON workflows(trigger_event)
				WHERE is_active AND deleted_at IS NULL;
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);

			CREATE TABLE workflow_nodes (
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				node_type VARCHAR(50) NOT NULL
					CHECK (node_type IN ('trigger', 'action', 'delay', 'condition', 'end')),
				action_type VARCHAR(100),
				config JSONB DEFAULT '{}',
				position_x INT DEFAULT 0,
				position_y INT DEFAULT 0,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_nodes_type ON workflow_nodes(workflow_id, node_type);

			CREATE TABLE workflow_edges (
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				source_node_id VARCHAR(255) NOT NULL,
				target_node_id VARCHAR(255) NOT NULL,
				edge_label VARCHAR(10) NOT NULL DEFAULT 'default'
					CHECK (edge_label IN ('default', 'true', 'false')),
				sort_order INT NOT NULL DEFAULT 0,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_edges_source ON workflow_edges(workflow_id, source_node_id);

			CREATE TABLE workflow_runs (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id),
				trigger_event VARCHAR(100) NOT NULL,
				trigger_payload JSONB DEFAULT '{}',
				status VARCHAR(20) NOT NULL
					CHECK (status IN ('pending', 'running', 'success', 'failed')),
				current_node_id VARCHAR(255),
				execution_path JSONB NOT NULL DEFAULT '[]',
				error_message TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflow_runs_workflow_id ON workflow_runs(workflow_id);
			CREATE INDEX idx_workflow_runs_status ON workflow_runs(status);

			CREATE TABLE scheduled_steps (
				id UUID PRIMARY KEY,
				workflow_run_id UUID NOT NULL REFERENCES workflow_runs(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				scheduled_for TIMESTAMP WITH TIME ZONE NOT NULL,
				payload JSONB DEFAULT '{}',
				status VARCHAR(20) NOT NULL
					CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
				error_message TEXT,
				processed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- Partial index keeps the due-step scan cheap regardless of history size.
			CREATE INDEX idx_scheduled_steps_due ON scheduled_steps(scheduled_for)
				WHERE status = 'pending';
			CREATE INDEX idx_scheduled_steps_run_id ON scheduled_steps(workflow_run_id);
			CREATE INDEX idx_scheduled_steps_retention ON scheduled_steps(processed_at)
				WHERE status = 'completed';
		`,
	}
}
