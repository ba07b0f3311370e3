package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	SessionLoggedIn  Type = "session.logged_in"
	SessionLoggedOut Type = "session.logged_out"
	SessionRestored  Type = "session.restored"
	SnapshotSaved    Type = "snapshot.saved"
	SyncCompleted    Type = "sync.completed"
	SyncFailed       Type = "sync.failed"
	NetworkOnline    Type = "network.online"
	NetworkOffline   Type = "network.offline"
)

// Event is a session notification for presentation layers and other devices.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

func New(t Type, userID string, data map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Publisher accepts events. Implementations must not block for long.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
