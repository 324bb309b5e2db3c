// Package eventbus provides the internal publish/subscribe fan-out the
// kernel uses to notify in-process subscribers (metrics, log sink) of
// lifecycle and process events (§4.12, C12), adapted from the teacher's
// commbus.InMemoryCommBus: same pub/sub/middleware shape, a new event
// vocabulary (agent lifecycle instead of pipeline/agent-stage events).
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

// Event is anything with a Type() to route by.
type Event interface {
	Type() string
}

// Handler processes one published event.
type Handler func(ctx context.Context, ev Event) error

// Middleware intercepts every Publish call before/after fan-out, for
// cross-cutting concerns (metrics recording, tracing) kept out of call
// sites, mirroring the teacher's Middleware.Before/After contract.
type Middleware interface {
	Before(ctx context.Context, ev Event) (Event, error)
	After(ctx context.Context, ev Event, err error)
}

// Logger is the event bus's structured-logging contract.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type subscriberEntry struct {
	id      uint64
	handler Handler
}

// Bus fans events out to subscribers registered for the event's Type(),
// concurrently, logging (not propagating) individual subscriber failures.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscriberEntry
	middleware  []Middleware
	nextID      atomic.Uint64
	logger      Logger
}

// New builds an empty Bus.
func New(logger Logger) *Bus {
	return &Bus{subscribers: make(map[string][]subscriberEntry), logger: logger}
}

// AddMiddleware appends middleware to the chain, executed in registration order.
func (b *Bus) AddMiddleware(m Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middleware = append(b.middleware, m)
}

// Subscribe registers handler for eventType, returning an idempotent
// unsubscribe function.
func (b *Bus) Subscribe(eventType string, handler Handler) func() {
	id := b.nextID.Add(1)
	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriberEntry{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			entries := b.subscribers[eventType]
			for i, e := range entries {
				if e.id == id {
					b.subscribers[eventType] = append(entries[:i], entries[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish runs ev through the middleware chain, then fans it out to every
// subscriber for ev.Type() concurrently. A middleware returning a nil event
// aborts fan-out without error (the teacher's "aborted by middleware").
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	middleware := append([]Middleware(nil), b.middleware...)
	b.mu.RUnlock()

	var err error
	for _, m := range middleware {
		ev, err = m.Before(ctx, ev)
		if err != nil {
			return err
		}
		if ev == nil {
			return nil
		}
	}

	eventType := ev.Type()
	b.mu.RLock()
	entries := append([]subscriberEntry(nil), b.subscribers[eventType]...)
	b.mu.RUnlock()

	var wg sync.WaitGroup
	wg.Add(len(entries))
	for _, e := range entries {
		go func(e subscriberEntry) {
			defer wg.Done()
			if hErr := e.handler(ctx, ev); hErr != nil && b.logger != nil {
				b.logger.Warn("eventbus_subscriber_failed", "event_type", eventType, "error", hErr.Error())
			}
		}(e)
	}
	wg.Wait()

	for _, m := range middleware {
		m.After(ctx, ev, nil)
	}
	return nil
}
