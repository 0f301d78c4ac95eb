package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensflow/lensflow/pkg/channels/gochannel"
	"github.com/lensflow/lensflow/pkg/dispatch"
	"github.com/lensflow/lensflow/pkg/eventbus"
	"github.com/lensflow/lensflow/pkg/events"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/persistence/memory"
	"github.com/lensflow/lensflow/pkg/registry"
	"github.com/lensflow/lensflow/pkg/web"
	"github.com/lensflow/lensflow/pkg/workflow"
)

type testEnv struct {
	app   *fiber.App
	store *memory.Persistence
	bus   eventbus.EventBus
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := memory.NewPersistence()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, logger)

	reg := registry.NewDefaultRegistry(logger, registry.Services{})
	dispatcher := dispatch.NewDispatcher(reg, logger)
	coordinator := workflow.NewCoordinator(store, dispatcher, logger)
	poller := workflow.NewPoller(store, coordinator, logger)

	// Wire the dispatcher to the bus the way the API process does, so
	// ingested events create runs.
	td := workflow.NewTriggerDispatcher(store, coordinator, logger)
	bus.HandleTriggers(func(ctx context.Context, envelope *events.TriggerEnvelope) error {
		_, err := td.Dispatch(ctx, envelope.Event, envelope.Payload)

		return err
	})
	require.NoError(t, bus.Subscribe(context.Background()))

	handlers := web.NewAPIHandlers(store, bus, poller, validator.New(validator.WithRequiredStructEnabled()), logger)

	app := fiber.New()
	app.Post("/events", handlers.IngestEvent)
	app.Post("/scheduler/poll", handlers.TriggerPoll)
	app.Get("/runs/:id", handlers.GetRun)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.SaveWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Get("/:id/runs", handlers.GetWorkflowRuns)

	app.Get("/health", handlers.HealthCheck)

	return &testEnv{app: app, store: store, bus: bus}
}

func doJSON(t *testing.T, app *fiber.App, method string, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func validWorkflowRequest() web.SaveWorkflowRequest {
	return web.SaveWorkflowRequest{
		Name:         "Gallery delivery follow-up",
		TriggerEvent: "gallery_delivered",
		IsActive:     true,
		Nodes: []web.NodeRequest{
			{ID: "trigger-1", Type: "trigger"},
			{ID: "action-1", Type: "action", ActionType: "notify_admin", Config: map[string]any{"message": "delivered"}},
			{ID: "end-1", Type: "end"},
		},
		Edges: []web.EdgeRequest{
			{SourceNodeID: "trigger-1", TargetNodeID: "action-1"},
			{SourceNodeID: "action-1", TargetNodeID: "end-1", SortOrder: 1},
		},
	}
}

func TestSaveWorkflow(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/workflows/", validWorkflowRequest())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Gallery delivery follow-up", created.Name)
}

func TestSaveWorkflowRejectsBadGraphs(t *testing.T) {
	env := setupTestApp(t)

	tests := []struct {
		name   string
		mutate func(*web.SaveWorkflowRequest)
	}{
		{
			name: "short name",
			mutate: func(r *web.SaveWorkflowRequest) {
				r.Name = "ab"
			},
		},
		{
			name: "unknown trigger event",
			mutate: func(r *web.SaveWorkflowRequest) {
				r.TriggerEvent = "meteor_strike"
			},
		},
		{
			name: "no trigger node",
			mutate: func(r *web.SaveWorkflowRequest) {
				r.Nodes = r.Nodes[1:]
				r.Edges = r.Edges[1:]
			},
		},
		{
			name: "dangling edge",
			mutate: func(r *web.SaveWorkflowRequest) {
				r.Edges[0].TargetNodeID = "ghost"
			},
		},
		{
			name: "bad node type",
			mutate: func(r *web.SaveWorkflowRequest) {
				r.Nodes[1].Type = "teleport"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validWorkflowRequest()
			tt.mutate(&req)

			resp, _ := doJSON(t, env.app, http.MethodPost, "/workflows/", req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetWorkflowNotFound(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := doJSON(t, env.app, http.MethodGet, "/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteWorkflow(t *testing.T) {
	env := setupTestApp(t)

	_, body := doJSON(t, env.app, http.MethodPost, "/workflows/", validWorkflowRequest())

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	resp, _ := doJSON(t, env.app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, env.app, http.MethodGet, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIngestEventAccepted(t *testing.T) {
	env := setupTestApp(t)

	_, body := doJSON(t, env.app, http.MethodPost, "/workflows/", validWorkflowRequest())

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body := doJSON(t, env.app, http.MethodPost, "/events", web.IngestEventRequest{
		Event:   "gallery_delivered",
		Payload: map[string]any{"gallery_id": "g-1"},
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var ack web.IngestEventResponse
	require.NoError(t, json.Unmarshal(body, &ack))
	assert.NotEmpty(t, ack.EventID)

	// The dispatcher consumes asynchronously; the run appears shortly.
	require.Eventually(t, func() bool {
		runs, err := env.store.RunRepository().RunsByWorkflow(context.Background(), created.ID)

		return err == nil && len(runs) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestIngestEventRejectsUnknownType(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := doJSON(t, env.app, http.MethodPost, "/events", web.IngestEventRequest{
		Event: "meteor_strike",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTriggerPoll(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/scheduler/poll", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result workflow.PollResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 0, result.Processed)
}

func TestGetRun(t *testing.T) {
	env := setupTestApp(t)

	wf := &models.Workflow{ID: "wf-1", TriggerEvent: models.TriggerGalleryCreated}
	run := models.NewWorkflowRun(wf, "trigger-1", nil)
	require.NoError(t, env.store.RunRepository().CreateRun(context.Background(), run))

	resp, body := doJSON(t, env.app, http.MethodGet, "/runs/"+run.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.WorkflowRun
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, run.ID, fetched.ID)

	resp, _ = doJSON(t, env.app, http.MethodGet, "/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}
