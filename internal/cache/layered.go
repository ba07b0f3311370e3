package cache

import (
	"context"
	"time"

	"chitieu/internal/core"
	"chitieu/internal/storage"
)

// Layered fronts a durable Local with an in-memory LRU of snapshots. Writes
// reach the durable store before the LRU is updated, so a failed write never
// leaves the LRU ahead of disk.
type Layered struct {
	durable   Local
	snapshots *LRUCache[core.User]
}

func NewLayered(durable Local, size int, ttl time.Duration) *Layered {
	return &Layered{
		durable:   durable,
		snapshots: NewLRUCache[core.User](size, ttl),
	}
}

// Snapshots exposes the LRU so a Manager can sweep it.
func (l *Layered) Snapshots() *LRUCache[core.User] {
	return l.snapshots
}

func (l *Layered) Save(ctx context.Context, userID string, u core.User) error {
	if err := l.durable.Save(ctx, userID, u); err != nil {
		l.snapshots.Delete(storage.SnapshotKey(userID))
		return err
	}
	l.snapshots.Set(storage.SnapshotKey(userID), u.Clone())
	return nil
}

func (l *Layered) Load(ctx context.Context, userID string) (*core.User, error) {
	key := storage.SnapshotKey(userID)
	if u, ok := l.snapshots.Get(key); ok {
		c := u.Clone()
		return &c, nil
	}
	u, err := l.durable.Load(ctx, userID)
	if err != nil || u == nil {
		return u, err
	}
	l.snapshots.Set(key, u.Clone())
	return u, nil
}

func (l *Layered) Clear(ctx context.Context, userID string) error {
	l.snapshots.Delete(storage.SnapshotKey(userID))
	return l.durable.Clear(ctx, userID)
}

func (l *Layered) SetLastUser(ctx context.Context, userID string) error {
	return l.durable.SetLastUser(ctx, userID)
}

func (l *Layered) LastUser(ctx context.Context) (string, error) {
	return l.durable.LastUser(ctx)
}

func (l *Layered) ClearLastUser(ctx context.Context) error {
	return l.durable.ClearLastUser(ctx)
}

func (l *Layered) SaveTheme(ctx context.Context, theme []byte) error {
	return l.durable.SaveTheme(ctx, theme)
}

func (l *Layered) LoadTheme(ctx context.Context) ([]byte, error) {
	return l.durable.LoadTheme(ctx)
}
