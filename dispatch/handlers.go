package dispatch

import (
	"fmt"
	"sync"

	"github.com/jeeves-cluster-organization/agentkernel/wire"
)

// ErrNoHandler is returned when no handler is registered for a message type.
var ErrNoHandler = fmt.Errorf("dispatch: no handler registered")

// HandlerContext carries the per-message routing context a HandlerFunc needs
// to reply: the peer the message arrived from and the raw trace id.
type HandlerContext struct {
	Peer    string
	TraceID wire.TraceID
}

// HandlerFunc processes one decoded message and optionally returns a
// response message to send back to Peer.
type HandlerFunc func(ctx HandlerContext, msg wire.Message) (*wire.Message, error)

// Table routes inbound messages to a HandlerFunc by wire.Type, and reports
// misses (types with no handler) to an optional callback for the
// observability layer.
type Table struct {
	mu       sync.RWMutex
	handlers map[wire.Type]HandlerFunc

	onUnknown func(wire.Type)
}

// NewTable builds an empty dispatch table. onUnknown, if non-nil, is invoked
// (e.g. to increment a metrics counter) whenever Dispatch is called for a
// type with no registered handler.
func NewTable(onUnknown func(wire.Type)) *Table {
	return &Table{handlers: make(map[wire.Type]HandlerFunc), onUnknown: onUnknown}
}

// Register binds a handler to a message type, replacing any prior handler.
func (t *Table) Register(msgType wire.Type, h HandlerFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[msgType] = h
}

// Dispatch routes msg to its registered handler. If none is registered, it
// reports the miss via onUnknown and returns an Error-frame-shaped response
// plus ErrNoHandler so callers can both reply and log/count the failure.
func (t *Table) Dispatch(ctx HandlerContext, msg wire.Message) (*wire.Message, error) {
	t.mu.RLock()
	h, ok := t.handlers[msg.Type]
	t.mu.RUnlock()

	if !ok {
		if t.onUnknown != nil {
			t.onUnknown(msg.Type)
		}
		errMsg := wire.WithTraceID(wire.TypeError, ctx.TraceID, []byte(fmt.Sprintf("no handler for type %s", msg.Type)))
		return &errMsg, ErrNoHandler
	}
	return h(ctx, msg)
}
