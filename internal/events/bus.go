package events

import (
	"context"
	"fmt"
	"sync"

	"chitieu/internal/log"
)

type Handler func(ctx context.Context, e Event) error

// Bus fans events out to subscribers. Publish runs handlers on their own
// goroutines; PublishSync runs them in order and stops at the first error.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	all      []Handler
	logger   *log.Logger
	wg       sync.WaitGroup
}

func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Discard()
	}
	return &Bus{
		handlers: make(map[Type][]Handler),
		logger:   logger.WithComponent(log.ComponentEvents),
	}
}

func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
	b.logger.Debug("Event handler registered", "event_type", t, "total_handlers", len(b.handlers[t]))
}

// SubscribeAll registers h for every event type.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

func (b *Bus) handlersFor(t Type) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, 0, len(b.handlers[t])+len(b.all))
	out = append(out, b.handlers[t]...)
	return append(out, b.all...)
}

func (b *Bus) Publish(ctx context.Context, e Event) error {
	handlers := b.handlersFor(e.Type)
	if len(handlers) == 0 {
		b.logger.DebugContext(ctx, "No handlers for event", "event_type", e.Type)
		return nil
	}

	b.logger.DebugContext(ctx, "Publishing event",
		"event_type", e.Type,
		"event_id", e.ID,
		"handlers_count", len(handlers))

	// Handlers outlive the caller's request.
	hctx := context.WithoutCancel(ctx)
	for _, h := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			if err := h(hctx, e); err != nil {
				b.logger.ErrorContext(hctx, "Event handler failed",
					"event_type", e.Type,
					"event_id", e.ID,
					"error", err)
			}
		}(h)
	}
	return nil
}

func (b *Bus) PublishSync(ctx context.Context, e Event) error {
	for _, h := range b.handlersFor(e.Type) {
		if err := h(ctx, e); err != nil {
			b.logger.ErrorContext(ctx, "Event handler failed",
				"event_type", e.Type,
				"event_id", e.ID,
				"error", err)
			return fmt.Errorf("handler failed for event %s: %w", e.Type, err)
		}
	}
	return nil
}

// Wait blocks until every handler started by Publish has returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}
