package sheets

import (
	"context"

	"chitieu/internal/core"
)

// SnapshotMirror publishes a read-only copy of a user's snapshot after a
// successful sync.
type SnapshotMirror interface {
	Mirror(ctx context.Context, u core.User) error
}

// Nop is a SnapshotMirror that does nothing.
type Nop struct{}

func (Nop) Mirror(context.Context, core.User) error { return nil }
