// Package stats records gate admit/deny decisions.
//
// Recording is best-effort: callers log failures and move on, a stats
// backend outage never changes a gate decision.
package stats

import (
	"context"
	"time"
)

// Event is one gate decision.
type Event struct {
	Policy  string
	Target  string
	Allowed bool
	At      time.Time
}

// Store persists decision statistics.
type Store interface {
	Record(ctx context.Context, ev Event) error
}

// Counters is an allowed/denied pair.
type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

func (c *Counters) add(allowed bool) {
	if allowed {
		c.Allowed++
		return
	}
	c.Denied++
}

// Tee records every event to each store. It returns the first error.
type Tee []Store

func (t Tee) Record(ctx context.Context, ev Event) error {
	var first error
	for _, s := range t {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
