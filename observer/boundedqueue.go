package observer

import (
	"context"
	"sync"
)

// Logger is the observer package's structured-logging contract.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// BoundedQueue wraps a slow Observer (typically one making a network or
// disk call) with a fixed-depth channel and one worker goroutine, so
// Composite.Notify never blocks on it. When the queue is full the event is
// dropped and logged, per §4.10's "bounded queue for slow sinks" and
// mirroring the teacher pack's non-blocking-send-with-drop fan-out
// (policy_hub.Publish: "select { case ch <- event: default: log... }").
type BoundedQueue struct {
	inner  Observer
	events chan Event
	logger Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewBoundedQueue starts a worker draining into inner with the given queue depth.
func NewBoundedQueue(inner Observer, depth int, logger Logger) *BoundedQueue {
	if depth <= 0 {
		depth = 64
	}
	q := &BoundedQueue{
		inner:  inner,
		events: make(chan Event, depth),
		logger: logger,
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *BoundedQueue) run() {
	defer close(q.done)
	for ev := range q.events {
		q.inner.Notify(context.Background(), ev)
	}
}

// Notify enqueues ev without blocking, dropping it (and logging) if the
// queue is full.
func (q *BoundedQueue) Notify(ctx context.Context, ev Event) {
	select {
	case q.events <- ev:
	default:
		if q.logger != nil {
			q.logger.Warn("observer_queue_full_dropping_event", "kind", ev.Kind, "agent_id", ev.AgentID)
		}
	}
}

// Close stops accepting new events and waits for the worker to drain what
// remains in the queue.
func (q *BoundedQueue) Close() {
	q.closeOnce.Do(func() { close(q.events) })
	<-q.done
}

var _ Observer = (*BoundedQueue)(nil)
