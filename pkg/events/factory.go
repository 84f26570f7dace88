package events

import (
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for player telemetry
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new CloudEvent with the given parameters
func (f *EventFactory) CreateEvent(eventType, subject string, data interface{}) *CloudEvent {
	return &CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// CreateSessionEvent creates an event scoped to a run and session
func (f *EventFactory) CreateSessionEvent(eventType, runID, sessionID string, data interface{}) *CloudEvent {
	event := f.CreateEvent(eventType, "packing-session/"+sessionID, data)
	event.RunID = runID
	event.SessionID = sessionID
	return event
}
