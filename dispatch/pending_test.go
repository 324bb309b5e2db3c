package dispatch

import (
	"testing"
	"time"

	"github.com/jeeves-cluster-organization/agentkernel/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingRequestTableInsertTakeRoundTrip(t *testing.T) {
	table := NewPendingRequestTable()
	id := wire.NewTraceID()

	require.NoError(t, table.Insert(id, Originator{Peer: "peer-a", CallType: wire.TypeCall}))
	assert.Equal(t, 1, table.Len())

	o, ok := table.Take(id)
	assert.True(t, ok)
	assert.Equal(t, "peer-a", o.Peer)
	assert.Equal(t, 0, table.Len())

	_, ok = table.Take(id)
	assert.False(t, ok, "a taken entry cannot be taken twice")
}

func TestPendingRequestTableInsertDuplicateRejected(t *testing.T) {
	table := NewPendingRequestTable()
	id := wire.NewTraceID()

	require.NoError(t, table.Insert(id, Originator{Peer: "peer-a"}))
	err := table.Insert(id, Originator{Peer: "peer-b"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPendingRequestTableSweepExpiresPastDeadline(t *testing.T) {
	table := NewPendingRequestTable()
	now := time.Now()

	expiredID := wire.NewTraceID()
	liveID := wire.NewTraceID()
	require.NoError(t, table.Insert(expiredID, Originator{Peer: "a", Deadline: now.Add(-time.Second)}))
	require.NoError(t, table.Insert(liveID, Originator{Peer: "b", Deadline: now.Add(time.Hour)}))

	expired := table.Sweep(now)
	require.Len(t, expired, 1)
	assert.Equal(t, expiredID, expired[0].ID)
	assert.Equal(t, 1, table.Len())
}
