package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestTryAdmitBurstAtSameInstant(t *testing.T) {
	clock := newFakeClock()
	limiter := New(3, time.Second, WithClock(clock.Now))

	results := make([]bool, 0, 5)
	for i := 0; i < 5; i++ {
		results = append(results, limiter.TryAdmit())
	}

	require.Equal(t, []bool{true, true, true, false, false}, results)
	require.Equal(t, 0, limiter.Remaining())
}

func TestTryAdmitWindowBoundaryIsStrict(t *testing.T) {
	clock := newFakeClock()
	limiter := New(1, time.Second, WithClock(clock.Now))

	require.True(t, limiter.TryAdmit())

	clock.advance(999 * time.Millisecond)
	require.False(t, limiter.TryAdmit())

	// now - t == window: the event has left the window.
	clock.advance(time.Millisecond)
	require.True(t, limiter.TryAdmit())
}

func TestDeniedCallDoesNotRecord(t *testing.T) {
	clock := newFakeClock()
	limiter := New(2, time.Second, WithClock(clock.Now))

	require.True(t, limiter.TryAdmit())
	clock.advance(100 * time.Millisecond)
	require.True(t, limiter.TryAdmit())
	clock.advance(100 * time.Millisecond)
	require.False(t, limiter.TryAdmit())

	first := clock.now.Add(-200 * time.Millisecond)
	require.Equal(t, first.Add(time.Second), limiter.ResetAt())

	// The denied attempt must not extend the window.
	clock.advance(800 * time.Millisecond)
	require.Equal(t, 1, limiter.Remaining())
}

func TestNeverMoreThanCapacityInTrailingWindow(t *testing.T) {
	clock := newFakeClock()
	window := 1000 * time.Millisecond
	limiter := New(4, window, WithClock(clock.Now))

	var admitted []time.Time
	steps := []time.Duration{0, 10, 10, 50, 100, 200, 300, 5, 5, 400, 1, 1, 999, 250, 250, 250, 0, 0, 1000}
	for _, step := range steps {
		clock.advance(step * time.Millisecond)
		if limiter.TryAdmit() {
			admitted = append(admitted, clock.now)
		}

		inWindow := 0
		for _, at := range admitted {
			if clock.now.Sub(at) < window {
				inWindow++
			}
		}
		require.LessOrEqual(t, inWindow, 4)
	}
}

func TestRemaining(t *testing.T) {
	clock := newFakeClock()
	limiter := New(5, time.Minute, WithClock(clock.Now))

	require.Equal(t, 5, limiter.Remaining())

	for i := 0; i < 3; i++ {
		require.True(t, limiter.TryAdmit())
	}
	require.Equal(t, 2, limiter.Remaining())
	require.Equal(t, 2, limiter.Remaining())

	clock.advance(time.Minute)
	require.Equal(t, 5, limiter.Remaining())
}

func TestResetAt(t *testing.T) {
	clock := newFakeClock()
	limiter := New(3, 10*time.Second, WithClock(clock.Now))

	require.True(t, limiter.ResetAt().IsZero())

	start := clock.now
	require.True(t, limiter.TryAdmit())
	clock.advance(2 * time.Second)
	require.True(t, limiter.TryAdmit())

	require.Equal(t, start.Add(10*time.Second), limiter.ResetAt())

	clock.advance(8 * time.Second)
	require.Equal(t, 2, limiter.Remaining())
	require.Equal(t, start.Add(12*time.Second), limiter.ResetAt())
}

func TestNewClampsInvalidInput(t *testing.T) {
	limiter := New(0, 0)
	require.Equal(t, 1, limiter.Capacity())
	require.Equal(t, time.Millisecond, limiter.Window())
}

func TestSnapshot(t *testing.T) {
	clock := newFakeClock()
	limiter := New(2, time.Second, WithClock(clock.Now))
	require.True(t, limiter.TryAdmit())

	snap := limiter.Snapshot()
	require.Equal(t, 2, snap.Capacity)
	require.Equal(t, 1, snap.Tracked)
	require.Equal(t, 1, snap.Remaining)
	require.Equal(t, clock.now.Add(time.Second), snap.ResetAt)
}
