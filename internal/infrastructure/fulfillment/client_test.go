package fulfillment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendroute/packing-player/pkg/errors"
	"github.com/vendroute/packing-player/pkg/logging"
	"github.com/vendroute/packing-player/pkg/metrics"
	"github.com/vendroute/packing-player/pkg/resilience"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})
	client, err := NewClient(DefaultConfig(server.URL), logger, metrics.New(metrics.DefaultConfig("test")))
	require.NoError(t, err)
	return client, server
}

func TestFetchCommandSequence(t *testing.T) {
	payload := `{
		"commands": [
			{"id": "L1", "kind": "location", "narrationText": "Go to Depot.", "locationId": "loc-1", "locationName": "Depot"},
			{"id": "M1", "kind": "machine", "narrationText": "Pack Snack Wall.", "locationId": "loc-1", "machineId": "mac-1"},
			{"id": "I1", "kind": "item", "narrationText": "2 of Chips into A1.", "machineId": "mac-1", "pickableEntryIds": ["e1", "e2"], "quantity": 2}
		],
		"totalItems": 1,
		"hasItems": true
	}`

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/runs/run-1/packing-sessions/sess-1/commands", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))

	result, err := client.FetchCommandSequence(context.Background(), "run-1", "sess-1")
	require.NoError(t, err)
	require.Len(t, result.Commands, 3)
	assert.Equal(t, 1, result.TotalItems)
	assert.True(t, result.HasItems)
	assert.Equal(t, []string{"e1", "e2"}, result.Commands[2].PickableEntryIDs)
}

func TestFetchCommandSequenceSchemaRejection(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{
			name:    "item without pickable entries",
			payload: `{"commands": [{"id": "I1", "kind": "item", "narrationText": "Pack it."}]}`,
		},
		{
			name:    "item with empty pickable entries",
			payload: `{"commands": [{"id": "I1", "kind": "item", "narrationText": "Pack it.", "pickableEntryIds": []}]}`,
		},
		{
			name:    "unknown kind",
			payload: `{"commands": [{"id": "X1", "kind": "pallet", "narrationText": "???"}]}`,
		},
		{
			name:    "missing narration text",
			payload: `{"commands": [{"id": "L1", "kind": "location"}]}`,
		},
		{
			name:    "missing commands",
			payload: `{"totalItems": 0}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.payload))
			}))

			_, err := client.FetchCommandSequence(context.Background(), "run-1", "sess-1")
			require.Error(t, err)
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, errors.CodeValidationError, appErr.Code)
		})
	}
}

func TestFetchRunDetail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runs/run-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "run-1", "name": "Morning Route", "entries": [{"id": "e1", "picked": true}, {"id": "e2", "picked": false}]}`))
	}))

	detail, err := client.FetchRunDetail(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Morning Route", detail.Name)
	require.Len(t, detail.Entries, 2)
	assert.True(t, detail.Entries[0].Picked)
	assert.False(t, detail.Entries[1].Picked)
}

func TestFetchChocolateBoxes(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/runs/run-1/chocolate-boxes", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"boxes": [{"id": "b1", "name": "Box A", "quantity": 3}]}`))
	}))

	boxes, err := client.FetchChocolateBoxes(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, "Box A", boxes[0].Name)
	assert.Equal(t, 3, boxes[0].Quantity)
}

func TestUpdatePickStatuses(t *testing.T) {
	var received pickStatusRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/runs/run-1/entries/pick-status", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.UpdatePickStatuses(context.Background(), "run-1", []string{"e1", "e2"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, received.EntryIDs)
	assert.True(t, received.Picked)
}

func TestFinishSession(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/runs/run-1/packing-sessions/sess-1/finish", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "finished", "clearedEntries": 4}`))
	}))

	result, err := client.FinishSession(context.Background(), "run-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "finished", result.Status)
	assert.Equal(t, 4, result.ClearedEntries)
}

func TestAbandonAlreadyTerminated(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := client.AbandonSession(context.Background(), "run-1", "sess-1")
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeSessionTerminated, appErr.Code)
}

func TestCircuitBreakerOpensOnConsecutiveFailures(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	ctx := context.Background()
	for i := 0; i < int(resilience.DefaultFailureThreshold); i++ {
		_, err := client.FetchRunDetail(ctx, "run-1")
		require.Error(t, err)
		require.False(t, stderrors.Is(err, resilience.ErrCircuitOpen))
	}

	_, err := client.FetchRunDetail(ctx, "run-1")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, resilience.ErrCircuitOpen))
}
