package kernel

import (
	"errors"
	"testing"

	"github.com/jeeves-cluster-organization/agentkernel/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity(t *testing.T) identity.AgentIdentity {
	t.Helper()
	m := identity.NewManifest("test-agent", "0.1.0", "", nil, nil)
	return identity.New(m)
}

func TestKernelLifecycleHappyPath(t *testing.T) {
	k := New(testIdentity(t), DefaultConfig(), nil)
	assert.Equal(t, StateInit, k.State())

	var events []*KernelEvent
	k.OnEvent(func(e *KernelEvent) { events = append(events, e) })

	require.NoError(t, k.Start())
	assert.Equal(t, StateReady, k.State())

	require.NoError(t, k.Activate())
	assert.Equal(t, StateActive, k.State())

	_, err := k.Heartbeat()
	require.NoError(t, err)

	require.NoError(t, k.Suspend())
	assert.Equal(t, StateSuspended, k.State())

	require.NoError(t, k.Resume())
	assert.Equal(t, StateActive, k.State())

	require.NoError(t, k.Shutdown())
	assert.Equal(t, StateTerminated, k.State())

	require.NotEmpty(t, events)
	assert.Equal(t, KernelEventStateChanged, events[0].EventType)
}

func TestKernelRejectsIllegalTransition(t *testing.T) {
	k := New(testIdentity(t), DefaultConfig(), nil)
	err := k.Activate()
	require.Error(t, err)
	var invalid *ErrInvalidState
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, StateInit, invalid.From)
	assert.Equal(t, StateActive, invalid.To)
	assert.Equal(t, StateInit, k.State(), "state must be unchanged after a rejected transition")
}

func TestKernelHeartbeatRejectedBeforeReady(t *testing.T) {
	k := New(testIdentity(t), DefaultConfig(), nil)
	_, err := k.Heartbeat()
	require.Error(t, err)
}

func TestKernelShutdownAggregatesDrainErrors(t *testing.T) {
	k := New(testIdentity(t), DefaultConfig(), nil)
	require.NoError(t, k.Start())

	boom := errors.New("boom")
	err := k.Shutdown(
		func() error { return boom },
		func() error { return nil },
	)
	require.Error(t, err)
	var shutdownErr *ShutdownError
	require.True(t, errors.As(err, &shutdownErr))
	assert.Len(t, shutdownErr.Errors, 1)
	assert.Equal(t, StateTerminated, k.State(), "shutdown still terminates despite drain failure")
}

func TestKernelNoRegressPastRetiring(t *testing.T) {
	k := New(testIdentity(t), DefaultConfig(), nil)
	require.NoError(t, k.Start())
	require.NoError(t, k.Shutdown())

	err := k.Activate()
	require.Error(t, err)
	assert.Equal(t, StateTerminated, k.State())
}
