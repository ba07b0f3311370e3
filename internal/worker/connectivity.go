package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chitieu/internal/log"
	"chitieu/internal/remote"
)

// ConnectivityConfig holds configuration for the connectivity worker
type ConnectivityConfig struct {
	// PollInterval is how often IsOnline is checked (default: 15s)
	PollInterval time.Duration
}

func DefaultConnectivityConfig() ConnectivityConfig {
	return ConnectivityConfig{PollInterval: 15 * time.Second}
}

// Prober is the part of the remote store the worker polls.
type Prober interface {
	IsOnline() bool
}

// ConnectivityWorker polls a remote store that does not push network status
// and reports every transition to the handler.
type ConnectivityWorker struct {
	prober  Prober
	handler func(remote.NetworkStatus)
	config  ConnectivityConfig
	logger  *log.Logger

	mu      sync.Mutex
	running bool
	last    bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewConnectivityWorker(p Prober, handler func(remote.NetworkStatus), config ConnectivityConfig, logger *log.Logger) *ConnectivityWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConnectivityConfig().PollInterval
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ConnectivityWorker{
		prober:  p,
		handler: handler,
		config:  config,
		logger:  logger.WithComponent(log.ComponentNetwork),
	}
}

// Start records the current status and begins polling. Returns an error if
// already running.
func (w *ConnectivityWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("connectivity worker is already running")
	}
	w.running = true
	w.last = w.prober.IsOnline()
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	w.logger.InfoContext(ctx, "Connectivity worker started",
		"poll_interval", w.config.PollInterval,
		log.FieldOnline, w.Online())
	return nil
}

// Stop ends polling and waits for the loop to exit.
func (w *ConnectivityWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		w.logger.InfoContext(ctx, "Connectivity worker stopped")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Connectivity worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *ConnectivityWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Online returns the last observed status.
func (w *ConnectivityWorker) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *ConnectivityWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Probe(ctx)
		}
	}
}

// Probe checks the status once and fires the handler on a change.
func (w *ConnectivityWorker) Probe(ctx context.Context) {
	online := w.prober.IsOnline()

	w.mu.Lock()
	changed := online != w.last
	w.last = online
	w.mu.Unlock()

	if !changed {
		return
	}
	w.logger.InfoContext(ctx, "Network status changed", log.FieldOnline, online)
	if w.handler != nil {
		w.handler(remote.NetworkStatus{Online: online})
	}
}
