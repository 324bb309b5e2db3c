package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jeeves-cluster-organization/agentkernel/identity"
	"github.com/jeeves-cluster-organization/agentkernel/transport"
	"github.com/jeeves-cluster-organization/agentkernel/wire"
)

// defaultReplyTimeout bounds how long a single Register/Heartbeat send
// waits for the directory's Ack or Error before the registryclient's own
// backoff loop retries (§4.10: "await Ack or Error").
const defaultReplyTimeout = 10 * time.Second

// udpRegistryTransport sends Register/Heartbeat/Deregister frames to a
// directory peer over the same bound endpoint the kernel already serves
// calls on, satisfying registryclient.Transport without a second socket.
// Because transport.Endpoint.Recv is meant to be read by one dispatcher
// goroutine only, replies are not read here directly: the composition
// root's dispatch table routes inbound Ack/Error frames to deliver, keyed
// by trace id, so awaitReply can block on a per-request channel instead of
// a second reader on the endpoint.
type udpRegistryTransport struct {
	codec         wire.MessageCodec
	endpoint      *transport.Endpoint
	directoryAddr net.Addr
	identity      identity.AgentIdentity
	replyTimeout  time.Duration

	mu      sync.Mutex
	pending map[wire.TraceID]chan wire.Message
}

func newUDPRegistryTransport(codec wire.MessageCodec, ep *transport.Endpoint, directoryAddr net.Addr, id identity.AgentIdentity) *udpRegistryTransport {
	return &udpRegistryTransport{
		codec:         codec,
		endpoint:      ep,
		directoryAddr: directoryAddr,
		identity:      id,
		replyTimeout:  defaultReplyTimeout,
		pending:       make(map[wire.TraceID]chan wire.Message),
	}
}

type registerPayload struct {
	AgentID     string   `json:"agent_id"`
	DisplayName string   `json:"display_name"`
	Version     string   `json:"version"`
	Tags        []string `json:"tags"`
}

type heartbeatPayload struct {
	AgentID string `json:"agent_id"`
}

type heartbeatAckPayload struct {
	NeedsRegister bool `json:"needs_register"`
}

type cessationPayload struct {
	AgentID   string `json:"agent_id"`
	Cessation bool   `json:"cessation"`
}

// deliver routes an inbound Ack/Error frame from the directory peer to the
// waiter blocked on its trace id in awaitReply, if any. Registered as the
// dispatch table's Ack/Error handler by the composition root. Returns
// false if no request is currently awaiting this trace id (e.g. it already
// timed out), in which case the reply is silently dropped.
func (t *udpRegistryTransport) deliver(msg wire.Message) bool {
	t.mu.Lock()
	ch, ok := t.pending[msg.TraceID]
	if ok {
		delete(t.pending, msg.TraceID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- msg
	return true
}

// awaitReply sends msg to the directory and blocks until deliver routes a
// reply for msg.TraceID, ctx is cancelled, or replyTimeout elapses.
func (t *udpRegistryTransport) awaitReply(ctx context.Context, msg wire.Message) (wire.Message, error) {
	ch := make(chan wire.Message, 1)
	t.mu.Lock()
	t.pending[msg.TraceID] = ch
	t.mu.Unlock()
	cleanup := func() {
		t.mu.Lock()
		delete(t.pending, msg.TraceID)
		t.mu.Unlock()
	}

	frame, err := t.codec.Encode(msg)
	if err != nil {
		cleanup()
		return wire.Message{}, err
	}
	if _, err := t.endpoint.Send(frame, t.directoryAddr); err != nil {
		cleanup()
		return wire.Message{}, err
	}

	timer := time.NewTimer(t.replyTimeout)
	defer timer.Stop()
	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		cleanup()
		return wire.Message{}, ctx.Err()
	case <-timer.C:
		cleanup()
		return wire.Message{}, fmt.Errorf("registrytransport: timed out awaiting reply to %s", msg.Type)
	}
}

func (t *udpRegistryTransport) SendRegister(ctx context.Context, id identity.AgentIdentity) error {
	body, err := json.Marshal(registerPayload{
		AgentID:     id.ID().String(),
		DisplayName: id.Manifest().DisplayName(),
		Version:     id.Manifest().Version(),
		Tags:        id.Manifest().Tags(),
	})
	if err != nil {
		return err
	}

	reply, err := t.awaitReply(ctx, wire.New(wire.TypeRegister, body))
	if err != nil {
		return err
	}
	switch reply.Type {
	case wire.TypeAck:
		return nil
	case wire.TypeError:
		return fmt.Errorf("registrytransport: register rejected: %s", string(reply.Payload))
	default:
		return fmt.Errorf("registrytransport: unexpected reply type %s to register", reply.Type)
	}
}

// SendHeartbeat sends a Heartbeat and awaits its Ack or Error. An Ack
// carrying needs_register triggers an immediate re-register before
// returning, per §4.10's re-register-on-heartbeat-ack behavior.
func (t *udpRegistryTransport) SendHeartbeat(ctx context.Context, id identity.ID) error {
	body, err := json.Marshal(heartbeatPayload{AgentID: id.String()})
	if err != nil {
		return err
	}

	reply, err := t.awaitReply(ctx, wire.New(wire.TypeHeartbeat, body))
	if err != nil {
		return err
	}
	switch reply.Type {
	case wire.TypeAck:
		var ack heartbeatAckPayload
		if len(reply.Payload) > 0 && json.Unmarshal(reply.Payload, &ack) == nil && ack.NeedsRegister {
			return t.SendRegister(ctx, t.identity)
		}
		return nil
	case wire.TypeError:
		return fmt.Errorf("registrytransport: heartbeat rejected: %s", string(reply.Payload))
	default:
		return fmt.Errorf("registrytransport: unexpected reply type %s to heartbeat", reply.Type)
	}
}

// SendDeregister sends a final Heartbeat carrying a cessation marker
// (§4.10: "on Retiring, send a final Heartbeat with a cessation marker"),
// best-effort: shutdown does not wait for the directory to acknowledge it.
func (t *udpRegistryTransport) SendDeregister(ctx context.Context, id identity.ID) error {
	body, err := json.Marshal(cessationPayload{AgentID: id.String(), Cessation: true})
	if err != nil {
		return err
	}
	return t.send(wire.TypeHeartbeat, body)
}

func (t *udpRegistryTransport) send(msgType wire.Type, payload []byte) error {
	msg := wire.New(msgType, payload)
	frame, err := t.codec.Encode(msg)
	if err != nil {
		return err
	}
	_, err = t.endpoint.Send(frame, t.directoryAddr)
	return err
}
