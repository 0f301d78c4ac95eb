// Package sendwebhook provides the outbound webhook action.
package sendwebhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lensflow/lensflow/pkg/models"
)

const defaultTimeout = 30 * time.Second

var ErrURLRequired = errors.New("send_webhook requires a 'url' in configuration")

// Action posts the run data as JSON to an external endpoint. A non-2xx
// response is an error; there is a single attempt and no retry.
type Action struct {
	URL     string
	Method  string
	Headers map[string]string
	client  *http.Client
}

// NewAction creates a send_webhook action from node configuration.
func NewAction(config map[string]any) (*Action, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, ErrURLRequired
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	headers := make(map[string]string)

	if headersConfig, exists := config["headers"]; exists {
		if headersMap, ok := headersConfig.(map[string]any); ok {
			for k, v := range headersMap {
				if strVal, ok := v.(string); ok {
					headers[k] = strVal
				}
			}
		}
	}

	return &Action{
		URL:     url,
		Method:  strings.ToUpper(method),
		Headers: headers,
		client:  &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Execute sends the run data to the configured endpoint.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", "send_webhook", "url", a.URL)
	logger.InfoContext(ctx, "Executing webhook action")

	body, err := json.Marshal(map[string]any{
		"run_id":        executionCtx.RunID,
		"workflow_id":   executionCtx.WorkflowID,
		"trigger_event": executionCtx.TriggerEvent,
		"data":          executionCtx.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, a.Method, a.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	logger.InfoContext(ctx, "Webhook delivered", "status_code", resp.StatusCode)

	return map[string]any{
		"webhook_status_code": resp.StatusCode,
	}, nil
}
