package events

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestBusPublishAsync(t *testing.T) {
	b := NewBus(nil)
	var mu sync.Mutex
	var got []Type
	record := func(_ context.Context, e Event) error {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
		return nil
	}
	b.Subscribe(SyncCompleted, record)
	b.SubscribeAll(record)

	ctx, cancel := context.WithCancel(context.Background())
	if err := b.Publish(ctx, New(SyncCompleted, "u1", nil)); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := b.Publish(context.Background(), New(NetworkOffline, "", nil)); err != nil {
		t.Fatal(err)
	}
	b.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("expected 3 deliveries, got %v", got)
	}
}

func TestBusPublishSyncStopsOnError(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	b.Subscribe(SyncFailed, func(context.Context, Event) error {
		calls++
		return errors.New("boom")
	})
	b.Subscribe(SyncFailed, func(context.Context, Event) error {
		calls++
		return nil
	})
	err := b.PublishSync(context.Background(), New(SyncFailed, "u1", map[string]any{"error": "x"}))
	if err == nil || calls != 1 {
		t.Fatalf("expected first handler error to stop delivery, err=%v calls=%d", err, calls)
	}
}

func TestBusNoHandlers(t *testing.T) {
	b := NewBus(nil)
	if err := b.Publish(context.Background(), New(SessionLoggedIn, "u1", nil)); err != nil {
		t.Fatal(err)
	}
	if err := b.PublishSync(context.Background(), New(SessionLoggedIn, "u1", nil)); err != nil {
		t.Fatal(err)
	}
}

func TestNewEvent(t *testing.T) {
	e := New(SnapshotSaved, "u1", map[string]any{"outcome": "offline"})
	if e.ID == "" || e.Timestamp.IsZero() || e.UserID != "u1" || e.Type != SnapshotSaved {
		t.Fatalf("unexpected event %+v", e)
	}
	if err := (Discard{}).Publish(context.Background(), e); err != nil {
		t.Fatal(err)
	}
}
