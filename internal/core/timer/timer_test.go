package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualScheduleOnce(t *testing.T) {
	clock := NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	fired := 0
	clock.Schedule(func() { fired++ }, 5*time.Second)

	clock.Advance(4999 * time.Millisecond)
	require.Equal(t, 0, fired)

	clock.Advance(time.Millisecond)
	require.Equal(t, 1, fired)

	clock.Advance(time.Minute)
	require.Equal(t, 1, fired)
	require.Equal(t, 0, clock.Pending())
}

func TestManualRepeating(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewManual(start)

	var at []time.Duration
	h := clock.ScheduleRepeating(func() { at = append(at, clock.Now().Sub(start)) }, 4*time.Second)

	clock.Advance(12 * time.Second)
	require.Equal(t, []time.Duration{4 * time.Second, 8 * time.Second, 12 * time.Second}, at)

	clock.Cancel(h)
	clock.Cancel(h)
	clock.Advance(time.Minute)
	require.Len(t, at, 3)
}

func TestManualCallbackCanReschedule(t *testing.T) {
	clock := NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	order := []string{}
	clock.Schedule(func() {
		order = append(order, "first")
		clock.Schedule(func() { order = append(order, "nested") }, time.Second)
	}, time.Second)
	clock.Schedule(func() { order = append(order, "second") }, 1500*time.Millisecond)

	clock.Advance(3 * time.Second)
	require.Equal(t, []string{"first", "second", "nested"}, order)
}

func TestLoopDoSerializes(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()

	var counter int
	for i := 0; i < 100; i++ {
		require.NoError(t, loop.Do(context.Background(), func() { counter++ }))
	}
	require.Equal(t, 100, counter)
}

func TestLoopTimerFiresOnLoop(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()

	fired := make(chan struct{})
	loop.Schedule(func() { close(fired) }, 10*time.Millisecond)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestLoopCancelPreventsFire(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()

	var fired atomic.Int32
	h := loop.Schedule(func() { fired.Add(1) }, 20*time.Millisecond)
	loop.Cancel(h)
	loop.Cancel(h)

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(0), fired.Load())
	require.Equal(t, 0, loop.Pending())
}

func TestLoopRepeatingUntilCancel(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()

	ticks := make(chan struct{}, 16)
	h := loop.ScheduleRepeating(func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	}, 5*time.Millisecond)

	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatal("repeating timer stalled")
		}
	}

	require.NoError(t, loop.Do(context.Background(), func() { loop.Cancel(h) }))
	require.Equal(t, 0, loop.Pending())
}

func TestLoopClosed(t *testing.T) {
	loop := NewLoop()
	loop.Schedule(func() {}, time.Hour)
	loop.Close()
	loop.Close()

	require.ErrorIs(t, loop.Do(context.Background(), func() {}), ErrLoopClosed)
	require.Equal(t, 0, loop.Pending())
	require.False(t, loop.Schedule(func() {}, time.Second).Valid())
}
