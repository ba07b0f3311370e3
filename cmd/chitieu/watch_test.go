package main

import (
	"context"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"chitieu/internal/amqp"
	"chitieu/internal/backend"
	"chitieu/internal/cache"
	"chitieu/internal/core"
	"chitieu/internal/events"
	"chitieu/internal/log"
	"chitieu/internal/remote/memory"
	"chitieu/internal/services"
)

type countingRemote struct {
	*memory.Store
	syncs atomic.Int32
}

func (c *countingRemote) Sync(ctx context.Context) error {
	c.syncs.Add(1)
	return c.Store.Sync(ctx)
}

func TestRemoteChangeHandler(t *testing.T) {
	ctx := context.Background()
	rs := &countingRemote{Store: memory.New(memory.WithHashCost(bcrypt.MinCost))}
	created, err := rs.Register(ctx, "lan@example.com", "secret1", core.Profile{Name: "Lan"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := rs.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	lc := cache.NewMemory()
	if err := lc.Save(ctx, created.ID, core.User{ID: created.ID, Email: created.Email, Categories: core.DefaultCategories()}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if err := lc.SetLastUser(ctx, created.ID); err != nil {
		t.Fatalf("seed pointer: %v", err)
	}

	engine := services.NewEngine(rs, lc, services.WithConfig(services.EngineConfig{}))
	t.Cleanup(engine.Close)
	if _, ok, err := engine.Restore(ctx); err != nil || !ok {
		t.Fatalf("restore: ok=%v err=%v", ok, err)
	}

	handle := remoteChangeHandler(ctx, engine, rs, "this-device", log.Discard())
	message := func(device string, typ events.Type, userID string) *amqp.EventMessage {
		return amqp.NewEventMessage(backend.StampDevice(events.New(typ, userID, nil), device))
	}

	skipped := []*amqp.EventMessage{
		message("this-device", events.SnapshotSaved, created.ID),
		message("laptop", events.NetworkOnline, created.ID),
		message("laptop", events.SnapshotSaved, "someone-else"),
		// restored session, nobody signed in to the remote yet
		message("laptop", events.SnapshotSaved, created.ID),
	}
	for _, msg := range skipped {
		if err := handle(msg); err != nil {
			t.Fatalf("handler returned %v", err)
		}
	}
	if n := rs.syncs.Load(); n != 0 {
		t.Fatalf("expected no sync, got %d", n)
	}

	if _, err := rs.Authenticate(ctx, "lan@example.com", "secret1"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	engine.Wait()
	before := rs.syncs.Load()
	if err := handle(message("laptop", events.SyncCompleted, created.ID)); err != nil {
		t.Fatalf("handler returned %v", err)
	}
	if n := rs.syncs.Load(); n != before+1 {
		t.Fatalf("expected one sync after a remote change, got %d", n-before)
	}
}
