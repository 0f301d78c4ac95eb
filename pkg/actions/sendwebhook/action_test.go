package sendwebhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensflow/lensflow/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewActionRequiresURL(t *testing.T) {
	_, err := NewAction(map[string]any{})
	assert.ErrorIs(t, err, ErrURLRequired)
}

func TestExecutePostsRunData(t *testing.T) {
	var (
		gotMethod string
		gotHeader string
		gotBody   map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Studio")

		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{
		"url":     server.URL,
		"headers": map[string]any{"X-Studio": "lensflow"},
	})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), models.ExecutionContext{
		RunID:        "run-1",
		WorkflowID:   "wf-1",
		TriggerEvent: models.TriggerGalleryDelivered,
		Data:         map[string]any{"gallery_id": "g-1"},
	}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "lensflow", gotHeader)
	assert.Equal(t, "run-1", gotBody["run_id"])
	assert.Equal(t, http.StatusOK, result["webhook_status_code"])
}

func TestExecuteNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	action, err := NewAction(map[string]any{"url": server.URL})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestExecuteConnectionRefused(t *testing.T) {
	action, err := NewAction(map[string]any{"url": "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	assert.Error(t, err)
}
