// Package notice implements the process-wide, single-slot transient message
// banner and the blocking alert used for lookup failures.
package notice

import (
	"time"

	"github.com/google/uuid"

	"github.com/oasislearninghub/oasis/internal/core/timer"
)

// Severity of a notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// DefaultDismissAfter is how long a notice stays on screen.
const DefaultDismissAfter = 5 * time.Second

// Notice is a transient banner message.
type Notice struct {
	ID       string    `json:"id"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	ShownAt  time.Time `json:"shown_at"`
}

// Alert is a blocking message the user must close.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Sink renders notices and alerts. Calls happen on the surface owner's
// event loop.
type Sink interface {
	ShowNotice(n Notice)
	RemoveNotice(n Notice)
	ShowAlert(a Alert)
	CloseAlert()
}

// Surface holds at most one notice at a time.
type Surface struct {
	timers       timer.Service
	dismissAfter time.Duration
	sinks        []Sink

	current *Notice
	dismiss timer.Handle
	alert   *Alert
}

// Option configures a Surface.
type Option func(*Surface)

// WithDismissAfter overrides the auto-dismiss delay.
func WithDismissAfter(d time.Duration) Option {
	return func(s *Surface) {
		if d > 0 {
			s.dismissAfter = d
		}
	}
}

// WithSink adds a rendering sink.
func WithSink(sink Sink) Option {
	return func(s *Surface) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}

// NewSurface creates a notice surface scheduling dismissals on timers.
func NewSurface(timers timer.Service, opts ...Option) *Surface {
	s := &Surface{
		timers:       timers,
		dismissAfter: DefaultDismissAfter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Display replaces any current notice with a new one and schedules its
// removal.
func (s *Surface) Display(message string, severity Severity) Notice {
	s.Dismiss()

	if severity == "" {
		severity = SeverityInfo
	}
	n := Notice{
		ID:       uuid.NewString(),
		Message:  message,
		Severity: severity,
		ShownAt:  s.timers.Now(),
	}
	s.current = &n
	for _, sink := range s.sinks {
		sink.ShowNotice(n)
	}

	id := n.ID
	s.dismiss = s.timers.Schedule(func() {
		if s.current == nil || s.current.ID != id {
			return
		}
		s.dismiss = 0
		s.remove()
	}, s.dismissAfter)

	return n
}

// Dismiss removes the current notice, if any.
func (s *Surface) Dismiss() {
	if s.dismiss.Valid() {
		s.timers.Cancel(s.dismiss)
		s.dismiss = 0
	}
	if s.current != nil {
		s.remove()
	}
}

func (s *Surface) remove() {
	n := *s.current
	s.current = nil
	for _, sink := range s.sinks {
		sink.RemoveNotice(n)
	}
}

// Current returns the notice on display.
func (s *Surface) Current() (Notice, bool) {
	if s.current == nil {
		return Notice{}, false
	}
	return *s.current, true
}

// Alert opens a blocking alert, replacing any open one.
func (s *Surface) Alert(title, message string) {
	a := Alert{Title: title, Message: message}
	s.alert = &a
	for _, sink := range s.sinks {
		sink.ShowAlert(a)
	}
}

// CurrentAlert returns the open alert.
func (s *Surface) CurrentAlert() (Alert, bool) {
	if s.alert == nil {
		return Alert{}, false
	}
	return *s.alert, true
}

// CloseAlert closes the open alert. Closing when none is open is a no-op.
func (s *Surface) CloseAlert() {
	if s.alert == nil {
		return
	}
	s.alert = nil
	for _, sink := range s.sinks {
		sink.CloseAlert()
	}
}

// Close cancels the pending dismissal without notifying sinks.
func (s *Surface) Close() {
	if s.dismiss.Valid() {
		s.timers.Cancel(s.dismiss)
		s.dismiss = 0
	}
}
