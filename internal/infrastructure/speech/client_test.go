package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendroute/packing-player/internal/application"
	"github.com/vendroute/packing-player/pkg/logging"
)

func newTestSpeechClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})
	client := NewClient(DefaultConfig(server.URL), logger)
	t.Cleanup(client.Close)
	return client
}

func collectEvent(t *testing.T, client *Client, kind application.NarrationEventKind) application.NarrationEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-client.Events():
			if event.Kind == kind {
				return event
			}
		case <-deadline:
			t.Fatalf("no %s event received", kind)
		}
	}
}

func TestSpeakFinishes(t *testing.T) {
	var received speakRequest
	client := newTestSpeechClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.Speak(context.Background(), "Go to Depot."))

	started := collectEvent(t, client, application.NarrationStarted)
	assert.Equal(t, "Go to Depot.", started.Text)
	collectEvent(t, client, application.NarrationFinished)
	assert.Equal(t, "Go to Depot.", received.Text)
}

func TestSpeakRejectsEmptyText(t *testing.T) {
	client := newTestSpeechClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	assert.Error(t, client.Speak(context.Background(), ""))
}

func TestStopCancelsUtterance(t *testing.T) {
	release := make(chan struct{})
	client := newTestSpeechClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Hold the request open like a daemon playing audio.
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	require.NoError(t, client.Speak(context.Background(), "A long narration."))
	collectEvent(t, client, application.NarrationStarted)

	client.Stop()
	collectEvent(t, client, application.NarrationCancelled)
}

func TestSpeakInterruptsPreviousUtterance(t *testing.T) {
	release := make(chan struct{})
	client := newTestSpeechClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req speakRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Text == "First." {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer close(release)

	ctx := context.Background()
	require.NoError(t, client.Speak(ctx, "First."))
	collectEvent(t, client, application.NarrationStarted)

	require.NoError(t, client.Speak(ctx, "Second."))

	cancelled := collectEvent(t, client, application.NarrationCancelled)
	assert.Equal(t, "First.", cancelled.Text)
	finished := collectEvent(t, client, application.NarrationFinished)
	assert.Equal(t, "Second.", finished.Text)
}

func TestInterruptEmitsCancelledBeforeStarted(t *testing.T) {
	release := make(chan struct{})
	client := newTestSpeechClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req speakRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Text == "First." {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer close(release)

	ctx := context.Background()
	require.NoError(t, client.Speak(ctx, "First."))
	first := collectEvent(t, client, application.NarrationStarted)
	require.Equal(t, "First.", first.Text)

	require.NoError(t, client.Speak(ctx, "Second."))

	// The interruption must be observable before the new utterance
	// starts, otherwise a speaking-flag fold ends up false while the
	// second utterance is still playing.
	var next application.NarrationEvent
	select {
	case next = <-client.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	assert.Equal(t, application.NarrationCancelled, next.Kind)
	assert.Equal(t, "First.", next.Text)

	select {
	case next = <-client.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	assert.Equal(t, application.NarrationStarted, next.Kind)
	assert.Equal(t, "Second.", next.Text)
}

func TestDaemonErrorStillFinishes(t *testing.T) {
	client := newTestSpeechClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	require.NoError(t, client.Speak(context.Background(), "Go to Depot."))
	// A failed utterance still reports finished so the player is never
	// stuck in a speaking state.
	collectEvent(t, client, application.NarrationFinished)
}

func TestSpeakAfterClose(t *testing.T) {
	client := newTestSpeechClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client.Close()
	assert.Error(t, client.Speak(context.Background(), "Go to Depot."))
}
