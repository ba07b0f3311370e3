package amqp

import (
	"encoding/json"
	"time"

	"chitieu/internal/events"
)

// EventMessage is the wire form of a session event.
type EventMessage struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

func NewEventMessage(e events.Event) *EventMessage {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &EventMessage{
		ID:        e.ID,
		Type:      string(e.Type),
		UserID:    e.UserID,
		Timestamp: ts,
		Data:      e.Data,
	}
}

// Event converts the message back into a bus event.
func (m *EventMessage) Event() events.Event {
	return events.Event{
		ID:        m.ID,
		Type:      events.Type(m.Type),
		UserID:    m.UserID,
		Timestamp: m.Timestamp,
		Data:      m.Data,
	}
}

func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
