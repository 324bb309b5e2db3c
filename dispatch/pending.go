// Package dispatch provides the inbound handler-dispatch table, the
// pending-request correlation table, and the forwarding coordinator that
// sits between the two (§4.3, §4.11).
package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/jeeves-cluster-organization/agentkernel/wire"
)

// ErrDuplicate is returned by Insert when a correlation id is already
// pending.
var ErrDuplicate = fmt.Errorf("dispatch: duplicate correlation id")

// Originator identifies who to route a Response back to once the matching
// Call's correlation id is taken from the table.
type Originator struct {
	Peer      string
	CallType  wire.Type
	InsertedAt time.Time
	Deadline  time.Time
}

// PendingRequestTable maps a correlation id to the originator awaiting its
// response, guarded by a RWMutex the way the teacher's LifecycleManager
// guards its process map (§5: short critical sections, reads favor RLock).
type PendingRequestTable struct {
	mu      sync.RWMutex
	entries map[wire.TraceID]Originator
}

// NewPendingRequestTable builds an empty table.
func NewPendingRequestTable() *PendingRequestTable {
	return &PendingRequestTable{entries: make(map[wire.TraceID]Originator)}
}

// Insert records a new pending request. Returns ErrDuplicate if the
// correlation id is already tracked (§4.3 invariant: no two in-flight
// requests may share a correlation id).
func (t *PendingRequestTable) Insert(id wire.TraceID, o Originator) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[id]; exists {
		return ErrDuplicate
	}
	t.entries[id] = o
	return nil
}

// Take removes and returns the originator for id, if present.
func (t *PendingRequestTable) Take(id wire.TraceID) (Originator, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	return o, ok
}

// Len reports how many requests are currently pending.
func (t *PendingRequestTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Expired is one entry that the Sweep found past its deadline.
type Expired struct {
	ID         wire.TraceID
	Originator Originator
}

// Sweep removes and returns every entry whose deadline is before `now`,
// for the scheduler to turn into Timeout audit events (§4.3, §4.6).
func (t *PendingRequestTable) Sweep(now time.Time) []Expired {
	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []Expired
	for id, o := range t.entries {
		if !o.Deadline.IsZero() && now.After(o.Deadline) {
			expired = append(expired, Expired{ID: id, Originator: o})
			delete(t.entries, id)
		}
	}
	return expired
}
