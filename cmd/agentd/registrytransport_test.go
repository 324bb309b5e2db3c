package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jeeves-cluster-organization/agentkernel/identity"
	"github.com/jeeves-cluster-organization/agentkernel/transport"
	"github.com/jeeves-cluster-organization/agentkernel/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAgentIdentity() identity.AgentIdentity {
	return identity.New(identity.NewManifest("agent-under-test", "1.0.0", "", nil, nil))
}

func newLoopbackTransport(t *testing.T) (*udpRegistryTransport, *transport.Endpoint, *transport.Endpoint) {
	t.Helper()
	ep, err := transport.Bind(":0", transport.Config{ReadTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { ep.Close() })

	directory, err := transport.Bind(":0", transport.Config{ReadTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { directory.Close() })

	rt := newUDPRegistryTransport(wire.FrameCodec{}, ep, directory.LocalAddr(), testAgentIdentity())
	return rt, ep, directory
}

// recvAndAck reads one frame at directory, decodes it, and sends back an
// Ack (optionally carrying needs_register) addressed to the sender.
func recvAndAck(t *testing.T, directory *transport.Endpoint, needsRegister bool) wire.Message {
	t.Helper()
	buf := make([]byte, wire.MaxPayloadBytes+64)
	n, peer, status, err := directory.Recv(buf)
	require.NoError(t, err)
	require.Equal(t, transport.StatusOK, status)

	msg, err := wire.FrameCodec{}.Decode(buf[:n])
	require.NoError(t, err)

	ackBody, err := json.Marshal(map[string]bool{"needs_register": needsRegister})
	require.NoError(t, err)
	ack := wire.WithTraceID(wire.TypeAck, msg.TraceID, ackBody)
	frame, err := wire.FrameCodec{}.Encode(ack)
	require.NoError(t, err)
	_, err = directory.Send(frame, peer)
	require.NoError(t, err)

	return msg
}

func TestUDPRegistryTransportSendRegisterAwaitsAck(t *testing.T) {
	rt, ep, directory := newLoopbackTransport(t)

	done := make(chan error, 1)
	go func() { done <- rt.SendRegister(context.Background(), testAgentIdentity()) }()

	sent := recvAndAck(t, directory, false)
	assert.Equal(t, wire.TypeRegister, sent.Type)

	// Deliver the Ack the way serveLoop would: read it from ep and hand it
	// to the transport by trace id.
	buf := make([]byte, wire.MaxPayloadBytes+64)
	n, _, status, err := ep.Recv(buf)
	require.NoError(t, err)
	require.Equal(t, transport.StatusOK, status)
	reply, err := wire.FrameCodec{}.Decode(buf[:n])
	require.NoError(t, err)
	require.True(t, rt.deliver(reply))

	require.NoError(t, <-done)
}

func TestUDPRegistryTransportHeartbeatReRegistersOnNeedsRegister(t *testing.T) {
	rt, ep, directory := newLoopbackTransport(t)

	done := make(chan error, 1)
	go func() { done <- rt.SendHeartbeat(context.Background(), testAgentIdentity().ID()) }()

	heartbeatSent := recvAndAck(t, directory, true)
	assert.Equal(t, wire.TypeHeartbeat, heartbeatSent.Type)

	buf := make([]byte, wire.MaxPayloadBytes+64)
	n, _, _, err := ep.Recv(buf)
	require.NoError(t, err)
	ackReply, err := wire.FrameCodec{}.Decode(buf[:n])
	require.NoError(t, err)
	require.True(t, rt.deliver(ackReply))

	// needs_register triggers a second round-trip: a fresh Register.
	registerSent := recvAndAck(t, directory, false)
	assert.Equal(t, wire.TypeRegister, registerSent.Type)

	n, _, _, err = ep.Recv(buf)
	require.NoError(t, err)
	registerAck, err := wire.FrameCodec{}.Decode(buf[:n])
	require.NoError(t, err)
	require.True(t, rt.deliver(registerAck))

	require.NoError(t, <-done)
}

func TestUDPRegistryTransportSendDeregisterSendsCessationHeartbeat(t *testing.T) {
	rt, _, directory := newLoopbackTransport(t)

	require.NoError(t, rt.SendDeregister(context.Background(), testAgentIdentity().ID()))

	buf := make([]byte, wire.MaxPayloadBytes+64)
	n, _, status, err := directory.Recv(buf)
	require.NoError(t, err)
	require.Equal(t, transport.StatusOK, status)

	msg, err := wire.FrameCodec{}.Decode(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, wire.TypeHeartbeat, msg.Type)

	var body cessationPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &body))
	assert.True(t, body.Cessation)
}
