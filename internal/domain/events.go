package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// SessionStartedEvent is published when a pack session begins playback
type SessionStartedEvent struct {
	RunID      string    `json:"runId"`
	SessionID  string    `json:"sessionId"`
	Commands   int       `json:"commands"`
	EntryCount int       `json:"entryCount"`
	PreSeeded  int       `json:"preSeeded"`
	StartedAt  time.Time `json:"startedAt"`
}

func (e *SessionStartedEvent) EventType() string     { return "player.session.started" }
func (e *SessionStartedEvent) OccurredAt() time.Time { return e.StartedAt }

// ItemResolvedEvent is published when an item command is packed or
// explicitly skipped
type ItemResolvedEvent struct {
	RunID      string    `json:"runId"`
	SessionID  string    `json:"sessionId"`
	CommandID  string    `json:"commandId"`
	EntryIDs   []string  `json:"entryIds"`
	Picked     bool      `json:"picked"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

func (e *ItemResolvedEvent) EventType() string {
	if e.Picked {
		return "player.item.packed"
	}
	return "player.item.skipped"
}
func (e *ItemResolvedEvent) OccurredAt() time.Time { return e.ResolvedAt }

// MachineCompletedEvent is published when the last item under a machine
// boundary is resolved
type MachineCompletedEvent struct {
	RunID       string    `json:"runId"`
	SessionID   string    `json:"sessionId"`
	MachineKey  string    `json:"machineKey"`
	Message     string    `json:"message"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e *MachineCompletedEvent) EventType() string     { return "player.machine.completed" }
func (e *MachineCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// SessionCompletedEvent is published when no playable commands remain
type SessionCompletedEvent struct {
	RunID       string    `json:"runId"`
	SessionID   string    `json:"sessionId"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e *SessionCompletedEvent) EventType() string     { return "player.session.completed" }
func (e *SessionCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
