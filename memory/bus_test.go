package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJournal struct {
	mu      sync.Mutex
	records []Record
	failNext bool
}

func (f *fakeJournal) Append(ctx context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("journal unavailable")
	}
	f.records = append(f.records, rec)
	return nil
}

func TestBusWriteFansToRingAndJournal(t *testing.T) {
	journal := &fakeJournal{}
	bus := NewBus(nil, NewRing(10), journal, nil)

	rec := Record{AgentID: "agent-1", Channel: ChannelObservation, Content: []byte("saw something")}
	require.NoError(t, bus.Write(context.Background(), rec))

	assert.Len(t, journal.records, 1)
	assert.Len(t, bus.Recent(0), 1)
}

func TestBusWriteDeniedByGate(t *testing.T) {
	journal := &fakeJournal{}
	gate := func(Record) bool { return false }
	bus := NewBus(gate, NewRing(10), journal, nil)

	err := bus.Write(context.Background(), Record{AgentID: "agent-1"})
	require.ErrorIs(t, err, ErrDenied)
	assert.Empty(t, journal.records)
}

func TestBusWriteSurvivesJournalFailure(t *testing.T) {
	journal := &fakeJournal{failNext: true}
	bus := NewBus(nil, NewRing(10), journal, nil)

	err := bus.Write(context.Background(), Record{AgentID: "agent-1"})
	require.Error(t, err)
	assert.Len(t, bus.Recent(0), 1, "ring write must still happen even if journal fails")
}

func TestRingEvictsOldestHalfWhenFull(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 5; i++ {
		r.Append(Record{AgentID: "agent"})
	}
	assert.LessOrEqual(t, r.Len(), 4)
	assert.Equal(t, 2, r.Dropped())
}
