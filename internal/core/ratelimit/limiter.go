// Package ratelimit implements the advisory sliding-window limiter that
// guards UI-triggered actions.
package ratelimit

import "time"

// Clock returns the current time.
type Clock func() time.Time

// Limiter admits at most Capacity events in any trailing Window.
//
// A Limiter is not safe for concurrent use; it is owned by a single session
// and only touched from that session's event loop.
type Limiter struct {
	capacity int
	window   time.Duration
	events   []time.Time
	clock    Clock
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter's time source.
func WithClock(clock Clock) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// Snapshot is a point-in-time view of a limiter.
type Snapshot struct {
	Capacity  int           `json:"capacity"`
	Window    time.Duration `json:"window"`
	Tracked   int           `json:"tracked"`
	Remaining int           `json:"remaining"`
	ResetAt   time.Time     `json:"reset_at"`
}

// New creates a limiter. Non-positive inputs are clamped to the smallest
// usable values; use Policy.Validate to reject them up front.
func New(capacity int, window time.Duration, opts ...Option) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Millisecond
	}

	l := &Limiter{
		capacity: capacity,
		window:   window,
		events:   make([]time.Time, 0, capacity),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryAdmit prunes expired events and records a new one if there is room.
func (l *Limiter) TryAdmit() bool {
	now := l.clock()
	l.prune(now)

	if len(l.events) >= l.capacity {
		return false
	}
	l.events = append(l.events, now)
	return true
}

// Remaining prunes expired events and reports how many admissions are left.
func (l *Limiter) Remaining() int {
	l.prune(l.clock())
	return max(0, l.capacity-len(l.events))
}

// ResetAt reports when the oldest tracked event leaves the window, freeing a
// slot. It returns the zero time when nothing is tracked. It does not prune.
func (l *Limiter) ResetAt() time.Time {
	if len(l.events) == 0 {
		return time.Time{}
	}
	return l.events[0].Add(l.window)
}

// Capacity returns the maximum admissions per window.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// Window returns the rolling window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Snapshot prunes and returns the current state.
func (l *Limiter) Snapshot() Snapshot {
	remaining := l.Remaining()
	return Snapshot{
		Capacity:  l.capacity,
		Window:    l.window,
		Tracked:   len(l.events),
		Remaining: remaining,
		ResetAt:   l.ResetAt(),
	}
}

// prune drops events with now - t >= window. Events are insertion ordered,
// so the survivors are a suffix.
func (l *Limiter) prune(now time.Time) {
	cut := 0
	for cut < len(l.events) && now.Sub(l.events[cut]) >= l.window {
		cut++
	}
	if cut == 0 {
		return
	}
	l.events = append(l.events[:0], l.events[cut:]...)
}
