// Package gate wraps user-triggered actions with an advisory rate limit
// check. A denied action has its default effect suppressed and raises a
// transient notice telling the user how long to wait.
package gate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/oasislearninghub/oasis/internal/core/notice"
	"github.com/oasislearninghub/oasis/internal/core/stats"
)

// Event is the input that triggered an action.
type Event interface {
	PreventDefault()
}

// Admitter answers admit/deny queries. *ratelimit.Limiter implements it.
type Admitter interface {
	TryAdmit() bool
	ResetAt() time.Time
}

// Notifier displays the denial notice. *notice.Surface implements it.
type Notifier interface {
	Display(message string, severity notice.Severity) notice.Notice
}

type options struct {
	policy string
	target string
	clock  func() time.Time
	stats  stats.Store
}

// Option configures a guard.
type Option func(*options)

// WithPolicy labels recorded decisions with the policy name.
func WithPolicy(name string) Option {
	return func(o *options) { o.policy = name }
}

// WithTarget labels recorded decisions with the element kind.
func WithTarget(target Target) Option {
	return func(o *options) { o.target = string(target) }
}

// WithClock sets the clock used for the wait computation. It should be the
// limiter's clock.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithStats records every decision to store.
func WithStats(store stats.Store) Option {
	return func(o *options) { o.stats = store }
}

// Guard returns action wrapped with a limiter check. When admitted the
// original action runs with the same event and its result is returned.
// When denied the event's default is prevented, one warning notice is
// displayed and the zero R is returned without running action.
func Guard[E Event, R any](limiter Admitter, notices Notifier, action func(E) R, opts ...Option) func(E) R {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return func(ev E) R {
		allowed := limiter.TryAdmit()
		o.record(allowed)

		if allowed {
			return action(ev)
		}

		ev.PreventDefault()
		if notices != nil {
			wait := SecondsUntil(limiter.ResetAt(), o.clock())
			notices.Display(DenialMessage(wait), notice.SeverityWarning)
		}

		var zero R
		return zero
	}
}

func (o options) record(allowed bool) {
	if o.stats == nil {
		return
	}
	_ = o.stats.Record(context.Background(), stats.Event{
		Policy:  o.policy,
		Target:  o.target,
		Allowed: allowed,
		At:      o.clock(),
	})
}

// SecondsUntil rounds the time left until resetAt up to whole seconds.
func SecondsUntil(resetAt, now time.Time) int {
	if resetAt.IsZero() {
		return 0
	}
	remaining := resetAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}

// DenialMessage is the user-facing text for a denied action.
func DenialMessage(seconds int) string {
	return fmt.Sprintf("Too many requests. Please wait %d seconds.", seconds)
}
