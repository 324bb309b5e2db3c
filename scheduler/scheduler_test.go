package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerAdmitRejectsOverQueueDepth(t *testing.T) {
	s := New(1, 1)
	release, err := s.Admit()
	require.NoError(t, err)

	_, err = s.Admit()
	assert.ErrorIs(t, err, ErrOverloaded)

	release()
	_, err = s.Admit()
	assert.NoError(t, err)
}

func TestSchedulerRunBoundsConcurrency(t *testing.T) {
	s := New(2, 10)
	var active, maxActive int32
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Run(context.Background(), func(ctx context.Context) {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				time.Sleep(20 * time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, maxActive, int32(2))
}

func TestSchedulerDrainWaitsForInflight(t *testing.T) {
	s := New(1, 1)
	done := make(chan struct{})
	go s.Run(context.Background(), func(ctx context.Context) {
		<-done
	})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int64(1), s.Inflight())

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(done)
	}()
	ok := s.Drain(time.Second)
	assert.True(t, ok)
	assert.Equal(t, int64(0), s.Inflight())
}

func TestSchedulerDrainTimesOut(t *testing.T) {
	s := New(1, 1)
	block := make(chan struct{})
	defer close(block)
	go s.Run(context.Background(), func(ctx context.Context) { <-block })
	time.Sleep(10 * time.Millisecond)

	ok := s.Drain(30 * time.Millisecond)
	assert.False(t, ok)
}

func TestPeriodicTaskFiresAndStops(t *testing.T) {
	var count int32
	var mu sync.Mutex
	task := StartPeriodic(10*time.Millisecond, func() {
		mu.Lock()
		count++
		mu.Unlock()
	})
	time.Sleep(45 * time.Millisecond)
	task.Stop()

	mu.Lock()
	n := count
	mu.Unlock()
	assert.GreaterOrEqual(t, n, int32(2))
}
