package dispatch

import (
	"fmt"
	"time"

	"github.com/jeeves-cluster-organization/agentkernel/wire"
)

// Forwarder sends a message to a downstream peer, returning once the send is
// handed off (not once a response arrives) — an injection point the
// Coordinator uses so it stays transport-agnostic, analogous to how the
// teacher's Coordinator hides its DDA gRPC client behind a narrow interface.
type Forwarder func(peer string, msg wire.Message) error

// Coordinator forwards an inbound Call downstream under a freshly minted
// correlation id, remembers the original caller in a PendingRequestTable,
// and on the matching Response takes that entry back out to know who to
// reply to — the request-routing half of §4.11's coordinator pattern.
type Coordinator struct {
	pending  *PendingRequestTable
	forward  Forwarder
	deadline time.Duration
}

// NewCoordinator builds a Coordinator that forwards via fwd and tracks
// in-flight correlation ids in table, with pending entries expiring after
// deadline (zero inserts entries without a deadline; Sweep never expires
// those, so they leave the table only through Complete).
func NewCoordinator(table *PendingRequestTable, fwd Forwarder, deadline time.Duration) *Coordinator {
	return &Coordinator{pending: table, forward: fwd, deadline: deadline}
}

// Route forwards a Call from originatorPeer to downstreamPeer under a new
// correlation id, recording originatorPeer so the eventual Response can be
// routed back.
func (c *Coordinator) Route(originatorPeer, downstreamPeer string, call wire.Message) (wire.TraceID, error) {
	if call.Type != wire.TypeCall {
		return wire.TraceID{}, fmt.Errorf("dispatch: coordinator only routes Call messages, got %s", call.Type)
	}

	newID := wire.NewTraceID()
	var deadlineAt time.Time
	if c.deadline > 0 {
		deadlineAt = time.Now().Add(c.deadline)
	}

	if err := c.pending.Insert(newID, Originator{
		Peer:       originatorPeer,
		CallType:   call.Type,
		InsertedAt: time.Now(),
		Deadline:   deadlineAt,
	}); err != nil {
		return wire.TraceID{}, err
	}

	forwarded := wire.WithTraceID(wire.TypeCall, newID, call.Payload)
	if err := c.forward(downstreamPeer, forwarded); err != nil {
		c.pending.Take(newID) // undo the reservation; the call never left
		return wire.TraceID{}, err
	}
	return newID, nil
}

// Complete takes the pending entry for a Response's correlation id and
// reports who the response should be forwarded back to. Returns false if
// the correlation id is unknown (already completed, expired, or never
// routed through this coordinator).
func (c *Coordinator) Complete(resp wire.Message) (originatorPeer string, ok bool) {
	o, found := c.pending.Take(resp.TraceID)
	if !found {
		return "", false
	}
	return o.Peer, true
}
