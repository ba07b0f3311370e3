package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) add(d time.Duration) { c.t = c.t.Add(d) }

func newTestLRU(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected a=1, got %q %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUOverwriteKeepsSize(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", "1")
	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" || c.Size() != 1 {
		t.Fatalf("unexpected state v=%q size=%d", v, c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestLRU(4, time.Minute)
	c.Set("a", "1")
	clock.add(30 * time.Second)
	c.Set("b", "2")
	clock.add(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("b should still be live")
	}
	clock.add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 cleaned, got %d", n)
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
}

func TestLRUZeroTTLNeverExpires(t *testing.T) {
	c, clock := newTestLRU(4, 0)
	c.Set("a", "1")
	clock.add(24 * time.Hour)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("zero ttl entries must not expire")
	}
}

func TestLRUDeleteAndPurge(t *testing.T) {
	c, _ := newTestLRU(4, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	c.Delete("missing")
	if c.Size() != 1 {
		t.Fatalf("expected 1 item, got %d", c.Size())
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("expected purge to empty cache")
	}
	c.Set("z", "9")
	if _, ok := c.Get("z"); !ok {
		t.Fatal("cache unusable after purge")
	}
}

func TestManagerSweep(t *testing.T) {
	c, clock := newTestLRU(4, time.Second)
	c.Set("a", "1")
	m := NewManager()
	m.Register(c)
	clock.add(2 * time.Second)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartCleanup(ctx, time.Millisecond)
	m.StartCleanup(ctx, time.Millisecond) // second start is ignored
	m.Stop()
	m.Stop()
}
