// Package timer provides the cancelable scheduling primitives the interaction
// core runs on: a Service contract, a single-goroutine event Loop backed by
// real timers, and a Manual virtual clock for deterministic tests.
package timer

import "time"

// Handle identifies a scheduled task. The zero Handle means "no task".
type Handle uint64

// Valid reports whether the handle refers to a scheduled task.
func (h Handle) Valid() bool {
	return h != 0
}

// Service schedules callbacks. Callbacks never run concurrently with each
// other or with work dispatched through the same service.
type Service interface {
	// Schedule runs fn once after d.
	Schedule(fn func(), d time.Duration) Handle
	// ScheduleRepeating runs fn every period until cancelled.
	ScheduleRepeating(fn func(), period time.Duration) Handle
	// Cancel stops a scheduled task. Cancelling an unknown, fired or already
	// cancelled handle is a no-op.
	Cancel(h Handle)
	// Now returns the service's notion of the current time.
	Now() time.Time
}
