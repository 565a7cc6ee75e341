package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oasislearninghub/oasis/internal/core/timer"
)

type recordingSink struct {
	shown   []Notice
	removed []Notice
	alerts  []Alert
	closed  int
}

func (r *recordingSink) ShowNotice(n Notice)   { r.shown = append(r.shown, n) }
func (r *recordingSink) RemoveNotice(n Notice) { r.removed = append(r.removed, n) }
func (r *recordingSink) ShowAlert(a Alert)     { r.alerts = append(r.alerts, a) }
func (r *recordingSink) CloseAlert()           { r.closed++ }

func newSurface(t *testing.T) (*Surface, *recordingSink, *timer.Manual) {
	t.Helper()
	clock := timer.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := &recordingSink{}
	return NewSurface(clock, WithSink(sink)), sink, clock
}

func TestDisplayAutoDismiss(t *testing.T) {
	surface, sink, clock := newSurface(t)

	n := surface.Display("Too many requests. Please wait 3 seconds.", SeverityWarning)
	require.NotEmpty(t, n.ID)

	current, ok := surface.Current()
	require.True(t, ok)
	require.Equal(t, n, current)

	clock.Advance(4999 * time.Millisecond)
	_, ok = surface.Current()
	require.True(t, ok)

	clock.Advance(time.Millisecond)
	_, ok = surface.Current()
	require.False(t, ok)
	require.Equal(t, []Notice{n}, sink.removed)
	require.Equal(t, 0, clock.Pending())
}

func TestDisplayReplacesCurrent(t *testing.T) {
	surface, sink, clock := newSurface(t)

	first := surface.Display("first", SeverityInfo)
	clock.Advance(3 * time.Second)
	second := surface.Display("second", SeverityWarning)

	require.Equal(t, []Notice{first}, sink.removed)
	require.Equal(t, 1, clock.Pending())

	// The first notice's dismissal time passes without touching the second.
	clock.Advance(2 * time.Second)
	current, ok := surface.Current()
	require.True(t, ok)
	require.Equal(t, second.ID, current.ID)

	clock.Advance(3 * time.Second)
	_, ok = surface.Current()
	require.False(t, ok)
	require.Equal(t, []Notice{first, second}, sink.removed)
}

func TestDefaultSeverityIsInfo(t *testing.T) {
	surface, _, _ := newSurface(t)
	n := surface.Display("hello", "")
	require.Equal(t, SeverityInfo, n.Severity)
}

func TestDismissIdempotent(t *testing.T) {
	surface, sink, clock := newSurface(t)

	surface.Dismiss()
	surface.Display("x", SeverityInfo)
	surface.Dismiss()
	surface.Dismiss()

	require.Len(t, sink.removed, 1)
	require.Equal(t, 0, clock.Pending())
}

func TestAlert(t *testing.T) {
	surface, sink, _ := newSurface(t)

	surface.CloseAlert()
	require.Equal(t, 0, sink.closed)

	surface.Alert("Enrollment", "Enrollment not found")
	alert, ok := surface.CurrentAlert()
	require.True(t, ok)
	require.Equal(t, "Enrollment not found", alert.Message)

	surface.CloseAlert()
	_, ok = surface.CurrentAlert()
	require.False(t, ok)
	require.Equal(t, 1, sink.closed)
}

func TestWithDismissAfter(t *testing.T) {
	clock := timer.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	surface := NewSurface(clock, WithDismissAfter(time.Second))

	surface.Display("quick", SeverityInfo)
	clock.Advance(time.Second)
	_, ok := surface.Current()
	require.False(t, ok)
}
