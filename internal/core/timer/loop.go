package timer

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLoopClosed is returned when work is dispatched to a closed loop.
var ErrLoopClosed = errors.New("event loop is closed")

const defaultQueueSize = 64

// Loop is a single-goroutine event loop. Every timer callback and every
// function passed to Do or Post runs on the loop goroutine, one at a time.
type Loop struct {
	queue chan func()
	done  chan struct{}

	closeOnce sync.Once

	mu     sync.Mutex
	nextID Handle
	timers map[Handle]*loopTimer

	clock func() time.Time
}

type loopTimer struct {
	t      *time.Timer
	period time.Duration
	fn     func()
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock overrides the loop's time source.
func WithClock(clock func() time.Time) LoopOption {
	return func(l *Loop) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithQueueSize sets the dispatch queue buffer.
func WithQueueSize(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.queue = make(chan func(), n)
		}
	}
}

// NewLoop starts a new event loop goroutine.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		queue:  make(chan func(), defaultQueueSize),
		done:   make(chan struct{}),
		timers: make(map[Handle]*loopTimer),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case <-l.done:
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

// Post enqueues fn without waiting for it to run.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}

	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from the loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if ctx == nil {
		ctx = context.Background()
	}

	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Schedule implements Service.
func (l *Loop) Schedule(fn func(), d time.Duration) Handle {
	return l.arm(fn, d, 0)
}

// ScheduleRepeating implements Service.
func (l *Loop) ScheduleRepeating(fn func(), period time.Duration) Handle {
	if period <= 0 {
		period = time.Millisecond
	}
	return l.arm(fn, period, period)
}

func (l *Loop) arm(fn func(), d, period time.Duration) Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case <-l.done:
		return 0
	default:
	}

	l.nextID++
	id := l.nextID
	entry := &loopTimer{period: period, fn: fn}
	entry.t = time.AfterFunc(d, func() {
		_ = l.Post(func() { l.fire(id) })
	})
	l.timers[id] = entry
	return id
}

// fire runs on the loop goroutine. A handle cancelled after its timer
// expired but before the callback was dequeued is skipped here.
func (l *Loop) fire(id Handle) {
	l.mu.Lock()
	entry, ok := l.timers[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	if entry.period > 0 {
		entry.t.Reset(entry.period)
	} else {
		delete(l.timers, id)
	}
	l.mu.Unlock()

	entry.fn()
}

// Cancel implements Service.
func (l *Loop) Cancel(h Handle) {
	if !h.Valid() {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.timers[h]; ok {
		entry.t.Stop()
		delete(l.timers, h)
	}
}

// Now implements Service.
func (l *Loop) Now() time.Time {
	return l.clock()
}

// Pending returns the number of scheduled tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// Close stops the loop and cancels every outstanding timer.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		close(l.done)
		for id, entry := range l.timers {
			entry.t.Stop()
			delete(l.timers, id)
		}
		l.mu.Unlock()
	})
}
