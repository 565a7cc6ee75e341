// Package carousel implements the slide carousel state machine: cyclic
// navigation, an autoplay timer, and arbitration between the input sources
// that can move or pause it.
//
// A Carousel is not safe for concurrent use. All methods, including the
// timer callbacks it schedules, must run on the same event loop.
package carousel

import (
	"errors"
	"time"

	"github.com/oasislearninghub/oasis/internal/core/timer"
)

const (
	DefaultInterval       = 4000 * time.Millisecond
	DefaultResumeDelay    = 5000 * time.Millisecond
	DefaultSwipeThreshold = 50.0
)

// ErrIndexOutOfRange is returned by GoTo for an index outside the slide set.
var ErrIndexOutOfRange = errors.New("carousel: slide index out of range")

// SlideHandle is a host-rendered slide. The carousel only writes to it.
type SlideHandle interface {
	SetActive(active bool)
}

// IndicatorHandle is a host-rendered indicator dot.
type IndicatorHandle interface {
	SetActive(active bool)
}

// Controls lists the input sources the host provides. A missing control
// disables its input source and nothing else.
type Controls struct {
	Prev       bool
	Next       bool
	Indicators bool
	Gesture    bool
	Hover      bool
}

// AllControls enables every input source.
var AllControls = Controls{Prev: true, Next: true, Indicators: true, Gesture: true, Hover: true}

// State is a read-only view of the carousel.
type State struct {
	Index           int  `json:"index"`
	Count           int  `json:"count"`
	AutoplayEnabled bool `json:"autoplay_enabled"`
	AutoplayRunning bool `json:"autoplay_running"`
	ResumePending   bool `json:"resume_pending"`
}

// Carousel owns the current slide and the autoplay lifecycle.
type Carousel struct {
	timers     timer.Service
	slides     []SlideHandle
	indicators []IndicatorHandle
	controls   Controls

	interval       time.Duration
	resumeDelay    time.Duration
	swipeThreshold float64

	index           int
	autoplayEnabled bool
	autoplay        timer.Handle
	resume          timer.Handle
	touchStartX     float64

	observer func(State)
}

// Option configures a Carousel.
type Option func(*Carousel)

// WithIndicators attaches indicator handles, one per slide.
func WithIndicators(indicators []IndicatorHandle) Option {
	return func(c *Carousel) { c.indicators = indicators }
}

// WithAutoplay sets the autoplay intent. Autoplay is enabled by default.
func WithAutoplay(enabled bool) Option {
	return func(c *Carousel) { c.autoplayEnabled = enabled }
}

func WithInterval(d time.Duration) Option {
	return func(c *Carousel) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithResumeDelay(d time.Duration) Option {
	return func(c *Carousel) {
		if d > 0 {
			c.resumeDelay = d
		}
	}
}

func WithSwipeThreshold(units float64) Option {
	return func(c *Carousel) {
		if units >= 0 {
			c.swipeThreshold = units
		}
	}
}

// WithControls declares which input sources exist.
func WithControls(controls Controls) Option {
	return func(c *Carousel) { c.controls = controls }
}

// WithObserver registers a callback invoked after every state change.
func WithObserver(fn func(State)) Option {
	return func(c *Carousel) { c.observer = fn }
}

// New builds a carousel over slides, projects the first slide as active and
// starts autoplay. With no slides the carousel is inert.
func New(timers timer.Service, slides []SlideHandle, opts ...Option) *Carousel {
	c := &Carousel{
		timers:          timers,
		slides:          slides,
		controls:        AllControls,
		interval:        DefaultInterval,
		resumeDelay:     DefaultResumeDelay,
		swipeThreshold:  DefaultSwipeThreshold,
		autoplayEnabled: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.Inert() {
		return c
	}

	for i, slide := range c.slides {
		slide.SetActive(i == 0)
	}
	for i, ind := range c.indicators {
		ind.SetActive(i == 0)
	}

	c.StartAutoplay()
	return c
}

// Inert reports whether the carousel has no slides.
func (c *Carousel) Inert() bool {
	return len(c.slides) == 0
}

// Index returns the active slide index.
func (c *Carousel) Index() int { return c.index }

// Len returns the number of slides.
func (c *Carousel) Len() int { return len(c.slides) }

// State returns a snapshot of the carousel.
func (c *Carousel) State() State {
	return State{
		Index:           c.index,
		Count:           len(c.slides),
		AutoplayEnabled: c.autoplayEnabled,
		AutoplayRunning: c.autoplay.Valid(),
		ResumePending:   c.resume.Valid(),
	}
}

// Next advances one slide, wrapping past the last to the first.
func (c *Carousel) Next() {
	if c.Inert() {
		return
	}
	c.show((c.index + 1) % len(c.slides))
}

// Prev moves back one slide, wrapping past the first to the last.
func (c *Carousel) Prev() {
	if c.Inert() {
		return
	}
	n := len(c.slides)
	c.show((c.index - 1 + n) % n)
}

// GoTo jumps to slide i, stops autoplay and schedules it to resume after
// the quiet period. A second GoTo inside the quiet period restarts it.
func (c *Carousel) GoTo(i int) error {
	if c.Inert() || i < 0 || i >= len(c.slides) {
		return ErrIndexOutOfRange
	}

	c.show(i)
	c.StopAutoplay()
	c.cancelResume()
	c.resume = c.timers.Schedule(func() {
		c.resume = 0
		c.StartAutoplay()
	}, c.resumeDelay)
	c.notify()
	return nil
}

// StartAutoplay schedules the repeating advance. It is a no-op when
// autoplay is disabled or already running.
func (c *Carousel) StartAutoplay() {
	if c.Inert() || !c.autoplayEnabled || c.autoplay.Valid() {
		return
	}
	c.autoplay = c.timers.ScheduleRepeating(c.Next, c.interval)
	c.notify()
}

// StopAutoplay cancels the autoplay timer. A resume scheduled by GoTo stays
// armed. Calling it with nothing scheduled is a no-op.
func (c *Carousel) StopAutoplay() {
	if !c.autoplay.Valid() {
		return
	}
	c.timers.Cancel(c.autoplay)
	c.autoplay = 0
	c.notify()
}

func (c *Carousel) cancelResume() {
	if c.resume.Valid() {
		c.timers.Cancel(c.resume)
		c.resume = 0
	}
}

// SetAutoplay changes the autoplay intent and starts or stops the timer to
// match it.
func (c *Carousel) SetAutoplay(enabled bool) {
	c.autoplayEnabled = enabled
	if enabled {
		c.StartAutoplay()
		return
	}
	c.cancelResume()
	c.StopAutoplay()
}

// Close cancels every timer owned by the carousel.
func (c *Carousel) Close() {
	c.cancelResume()
	c.StopAutoplay()
}

func (c *Carousel) show(i int) {
	if prev := c.index; prev != i {
		c.slides[prev].SetActive(false)
		if prev < len(c.indicators) {
			c.indicators[prev].SetActive(false)
		}
	}
	c.slides[i].SetActive(true)
	if i < len(c.indicators) {
		c.indicators[i].SetActive(true)
	}
	c.index = i
	c.notify()
}

func (c *Carousel) notify() {
	if c.observer != nil {
		c.observer(c.State())
	}
}
