package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chitieu/internal/remote"
)

type flipProber struct {
	online atomic.Bool
}

func (p *flipProber) IsOnline() bool { return p.online.Load() }

type recorder struct {
	mu   sync.Mutex
	seen []bool
}

func (r *recorder) handle(st remote.NetworkStatus) {
	r.mu.Lock()
	r.seen = append(r.seen, st.Online)
	r.mu.Unlock()
}

func (r *recorder) values() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.seen...)
}

func TestDefaultConnectivityConfig(t *testing.T) {
	if got := DefaultConnectivityConfig().PollInterval; got != 15*time.Second {
		t.Fatalf("expected 15s poll interval, got %v", got)
	}
	w := NewConnectivityWorker(&flipProber{}, nil, ConnectivityConfig{}, nil)
	if w.config.PollInterval != 15*time.Second {
		t.Fatalf("zero interval should fall back to default, got %v", w.config.PollInterval)
	}
}

func TestProbeReportsOnlyTransitions(t *testing.T) {
	p := &flipProber{}
	p.online.Store(true)
	rec := &recorder{}
	w := NewConnectivityWorker(p, rec.handle, DefaultConnectivityConfig(), nil)
	w.last = true
	ctx := context.Background()

	w.Probe(ctx)
	p.online.Store(false)
	w.Probe(ctx)
	w.Probe(ctx)
	p.online.Store(true)
	w.Probe(ctx)

	got := rec.values()
	if len(got) != 2 || got[0] || !got[1] {
		t.Fatalf("expected [false true], got %v", got)
	}
	if !w.Online() {
		t.Fatal("expected last status online")
	}
}

func TestStartStop(t *testing.T) {
	p := &flipProber{}
	rec := &recorder{}
	w := NewConnectivityWorker(p, rec.handle, ConnectivityConfig{PollInterval: 5 * time.Millisecond}, nil)
	ctx := context.Background()

	if w.IsRunning() {
		t.Fatal("worker should not be running initially")
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Fatal("expected error when starting twice")
	}

	p.online.Store(true)
	deadline := time.Now().Add(2 * time.Second)
	for len(rec.values()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := rec.values(); len(got) == 0 || !got[0] {
		t.Fatalf("expected an online transition, got %v", got)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if w.IsRunning() {
		t.Fatal("worker should be stopped")
	}
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("second stop should be a no-op: %v", err)
	}
}
