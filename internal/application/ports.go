package application

import (
	"context"

	"github.com/vendroute/packing-player/internal/domain"
	"github.com/vendroute/packing-player/pkg/events"
)

// CommandSequencePayload is the loaded command sequence for one packing
// session as returned by the fulfillment backend.
type CommandSequencePayload struct {
	Commands   []domain.Command
	TotalItems int
	HasItems   bool
}

// PickEntry is a single pickable entry with its remote picked flag.
type PickEntry struct {
	ID     string
	Picked bool
}

// RunDetail carries the run-level data the player needs at load time:
// which entries the backend already considers picked.
type RunDetail struct {
	RunID   string
	Name    string
	Entries []PickEntry
}

// ChocolateBox is an auxiliary box attached to a run, display-only.
type ChocolateBox struct {
	ID       string
	Name     string
	Quantity int
}

// TerminalResult is the backend's answer to a finish or abandon call.
type TerminalResult struct {
	Status         string
	ClearedEntries int
}

// FulfillmentGateway is the outbound port to the fulfillment backend.
type FulfillmentGateway interface {
	FetchCommandSequence(ctx context.Context, runID, sessionID string) (*CommandSequencePayload, error)
	FetchRunDetail(ctx context.Context, runID string) (*RunDetail, error)
	FetchChocolateBoxes(ctx context.Context, runID string) ([]ChocolateBox, error)
	UpdatePickStatuses(ctx context.Context, runID string, entryIDs []string, picked bool) error
	FinishSession(ctx context.Context, runID, sessionID string) (*TerminalResult, error)
	AbandonSession(ctx context.Context, runID, sessionID string) (*TerminalResult, error)
}

// NarrationEventKind classifies narration gateway lifecycle events.
type NarrationEventKind string

const (
	NarrationStarted   NarrationEventKind = "started"
	NarrationFinished  NarrationEventKind = "finished"
	NarrationCancelled NarrationEventKind = "cancelled"
)

// NarrationEvent is a lifecycle notification from the narration gateway.
type NarrationEvent struct {
	Kind NarrationEventKind
	Text string
}

// Narrator is the outbound port to the narration gateway. Speak starts
// a new utterance, interrupting any current one. Stop interrupts
// without error. Events reports utterance lifecycle transitions; the
// service folds them into a single is-speaking flag.
type Narrator interface {
	Speak(ctx context.Context, text string) error
	Stop()
	Events() <-chan NarrationEvent
}

// TelemetryPublisher publishes session telemetry events. Publication is
// best-effort throughout; callers log and count failures.
type TelemetryPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *events.CloudEvent) error
}
