// Package scheduler bounds concurrent call execution, admits or rejects
// inbound work against a queue-depth limit, runs the kernel's periodic
// tasks (heartbeat, pending-request sweep), and drains inflight work on
// shutdown (§4.6).
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrOverloaded is returned by Admit when the inbound queue is already at
// its configured depth.
var ErrOverloaded = fmt.Errorf("scheduler: inbound queue depth exceeded")

// Scheduler bounds concurrent call execution with a counting semaphore the
// way the teacher's RateLimiter/ResourceTracker bound per-user usage
// against a configured threshold, generalized here to kernel-wide
// concurrent-call admission rather than a sliding time window.
type Scheduler struct {
	sem     chan struct{}
	queued  atomic.Int64
	maxQueued int64

	inflight atomic.Int64
}

// New builds a Scheduler admitting at most maxConcurrent simultaneous calls
// and at most maxQueued calls waiting for a free slot.
func New(maxConcurrent, maxQueued int) *Scheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Scheduler{sem: make(chan struct{}, maxConcurrent), maxQueued: int64(maxQueued)}
}

// Admit reserves a queue slot for one call. Returns ErrOverloaded if the
// queue is already full. The returned release func must be called exactly
// once, after the call either starts executing or is abandoned.
func (s *Scheduler) Admit() (release func(), err error) {
	if s.maxQueued > 0 && s.queued.Add(1) > s.maxQueued {
		s.queued.Add(-1)
		return nil, ErrOverloaded
	}
	return func() { s.queued.Add(-1) }, nil
}

// Run blocks the caller until a concurrency slot is free (or ctx is
// cancelled), then invokes fn while holding that slot.
func (s *Scheduler) Run(ctx context.Context, fn func(ctx context.Context)) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.inflight.Add(1)
	defer func() {
		s.inflight.Add(-1)
		<-s.sem
	}()
	fn(ctx)
	return nil
}

// Inflight reports how many calls are currently executing.
func (s *Scheduler) Inflight() int64 { return s.inflight.Load() }

// Queued reports how many calls are currently admitted but not yet running.
func (s *Scheduler) Queued() int64 { return s.queued.Load() }

// Drain waits until Inflight reaches zero or deadline elapses, whichever
// comes first, returning whether it fully drained.
func (s *Scheduler) Drain(deadline time.Duration) bool {
	if s.Inflight() == 0 {
		return true
	}
	timeout := time.After(deadline)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-timeout:
			return s.Inflight() == 0
		case <-ticker.C:
			if s.Inflight() == 0 {
				return true
			}
		}
	}
}

// PeriodicTask runs fn every interval until Stop is called, grounded on the
// standard `kernel.Cleanup` periodic-call convention ("should be called
// periodically"), generalized here into its own ticker loop instead of
// relying on an external cron caller.
type PeriodicTask struct {
	stop chan struct{}
	once sync.Once
	done chan struct{}
}

// StartPeriodic launches fn on a ticker of the given interval, in its own
// goroutine, until Stop is called.
func StartPeriodic(interval time.Duration, fn func()) *PeriodicTask {
	t := &PeriodicTask{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return t
}

// Stop halts the periodic task and waits for its goroutine to exit.
func (t *PeriodicTask) Stop() {
	t.once.Do(func() { close(t.stop) })
	<-t.done
}
