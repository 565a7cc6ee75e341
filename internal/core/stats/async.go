package stats

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// Async forwards events to a Store from a background worker so that event
// loops never wait on a network round trip. Events are dropped when the
// buffer is full.
type Async struct {
	next    Store
	events  chan Event
	timeout time.Duration
	logger  *logging.Logger

	dropped atomic.Int64
	wg      sync.WaitGroup

	// mu guards closed against a concurrent close of events.
	mu     sync.RWMutex
	closed bool
}

// NewAsync starts the forwarding worker.
func NewAsync(next Store, buffer int, logger *logging.Logger) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	a := &Async{
		next:    next,
		events:  make(chan Event, buffer),
		timeout: 2 * time.Second,
		logger:  logger,
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) run() {
	defer a.wg.Done()
	for ev := range a.events {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Record(ctx, ev); err != nil && a.logger != nil {
			a.logger.Warn("Failed to record gate stats",
				zap.String("policy", ev.Policy),
				zap.Error(err))
		}
		cancel()
	}
}

// Record enqueues ev. It never blocks. Events recorded after Close are
// counted as dropped.
func (a *Async) Record(_ context.Context, ev Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return nil
	}
	select {
	case a.events <- ev:
	default:
		a.dropped.Add(1)
	}
	return nil
}

// Dropped returns how many events were discarded.
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Close drains queued events and stops the worker.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.events)
	a.mu.Unlock()

	a.wg.Wait()
}
