package events

import "time"

// EventType constants for packing-player telemetry events
const (
	SessionStarted   = "player.session.started"
	ItemPacked       = "player.item.packed"
	ItemSkipped      = "player.item.skipped"
	MachineCompleted = "player.machine.completed"
	SessionCompleted = "player.session.completed"
	SessionFinished  = "player.session.finished"
	SessionAbandoned = "player.session.abandoned"
)

// CloudEvent represents a CloudEvents v1.0 compliant telemetry event
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data,omitempty"`

	// Extension attributes
	RunID         string `json:"vendrunid,omitempty"`
	SessionID     string `json:"vendsessionid,omitempty"`
	CorrelationID string `json:"vendcorrelationid,omitempty"`
}

// SessionTerminatedData is the payload for finished/abandoned events
type SessionTerminatedData struct {
	RunID          string `json:"runId"`
	SessionID      string `json:"sessionId"`
	Status         string `json:"status"`
	ClearedEntries int    `json:"clearedEntries"`
}
