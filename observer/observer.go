// Package observer fans PolicyDecision and audit events out to any number
// of sinks, isolating a slow or failing sink from the others (§4.10).
package observer

import (
	"context"
	"sync"

	"github.com/jeeves-cluster-organization/agentkernel/policy"
)

// Event is one notification delivered to observers: a policy decision or a
// free-form audit event (the timeout/duplicate/overloaded notifications
// named in §7).
type Event struct {
	Kind     string
	AgentID  string
	TraceID  string
	Decision *policy.Decision
	Detail   string
}

// Observer receives Events. Implementations must not block the caller for
// long; Notify is expected to return quickly (typically by enqueueing).
type Observer interface {
	Notify(ctx context.Context, ev Event)
}

// Composite fans each Notify call out to every registered Observer in
// turn, inline on the caller's goroutine, best-effort: one sink panicking
// does not prevent delivery to the others, mirroring the teacher's
// emitEvent snapshot-then-invoke pattern. A sink that stalls delays the
// sinks after it unless it is wrapped in a BoundedQueue.
type Composite struct {
	mu   sync.RWMutex
	sinks []Observer
}

// NewComposite builds a Composite wrapping the given initial sinks.
func NewComposite(sinks ...Observer) *Composite {
	return &Composite{sinks: append([]Observer(nil), sinks...)}
}

// Add registers an additional sink.
func (c *Composite) Add(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, o)
}

// Notify delivers ev to every registered sink in turn, isolating a
// panicking sink from the rest. Sinks that need to decouple from the
// caller's goroutine (e.g. a remote audit sink making a network call)
// should wrap themselves in a BoundedQueue so Notify here stays a cheap,
// non-blocking enqueue rather than spawning a goroutine per event per sink.
func (c *Composite) Notify(ctx context.Context, ev Event) {
	c.mu.RLock()
	sinks := make([]Observer, len(c.sinks))
	copy(sinks, c.sinks)
	c.mu.RUnlock()

	for _, s := range sinks {
		c.notifyOne(ctx, s, ev)
	}
}

func (c *Composite) notifyOne(ctx context.Context, s Observer, ev Event) {
	defer func() { recover() }() // isolate one sink's panic from the rest
	s.Notify(ctx, ev)
}

var _ Observer = (*Composite)(nil)
