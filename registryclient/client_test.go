package registryclient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jeeves-cluster-organization/agentkernel/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	registerFailures int32
	heartbeats       atomic.Int32
	deregistered     atomic.Bool
}

func (f *fakeTransport) SendRegister(ctx context.Context, id identity.AgentIdentity) error {
	if f.registerFailures > 0 {
		f.registerFailures--
		return errors.New("directory unavailable")
	}
	return nil
}

func (f *fakeTransport) SendHeartbeat(ctx context.Context, id identity.ID) error {
	f.heartbeats.Add(1)
	return nil
}

func (f *fakeTransport) SendDeregister(ctx context.Context, id identity.ID) error {
	f.deregistered.Store(true)
	return nil
}

func testIdentity() identity.AgentIdentity {
	return identity.New(identity.NewManifest("agent", "1.0.0", "", nil, nil))
}

func TestClientRegisterRetriesThenSucceeds(t *testing.T) {
	transport := &fakeTransport{registerFailures: 2}
	client := New(transport, testIdentity(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, client.Register(ctx))
	assert.False(t, client.Degraded())
}

func TestClientRegisterDegradesOnContextCancel(t *testing.T) {
	transport := &fakeTransport{registerFailures: 1000}
	client := New(transport, testIdentity(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Register(ctx)
	require.Error(t, err)
	assert.True(t, client.Degraded())
}

func TestClientHeartbeatLoopSendsPeriodically(t *testing.T) {
	transport := &fakeTransport{}
	client := New(transport, testIdentity(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	client.HeartbeatLoop(ctx, 15*time.Millisecond)

	assert.GreaterOrEqual(t, transport.heartbeats.Load(), int32(2))
}

func TestClientDeregister(t *testing.T) {
	transport := &fakeTransport{}
	client := New(transport, testIdentity(), nil)
	require.NoError(t, client.Deregister(context.Background()))
	assert.True(t, transport.deregistered.Load())
}
