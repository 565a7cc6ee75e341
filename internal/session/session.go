// Package session hosts page sessions. A session is the view context that
// owns one set of rate limiters, the notice surface and the carousel, and
// serializes every mutation of them on a single event loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/oasislearninghub/oasis/internal/analytics"
	"github.com/oasislearninghub/oasis/internal/core"
	"github.com/oasislearninghub/oasis/internal/core/carousel"
	"github.com/oasislearninghub/oasis/internal/core/gate"
	"github.com/oasislearninghub/oasis/internal/core/notice"
	"github.com/oasislearninghub/oasis/internal/core/phone"
	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
	"github.com/oasislearninghub/oasis/internal/core/stats"
	"github.com/oasislearninghub/oasis/internal/core/timer"
	"github.com/oasislearninghub/oasis/internal/metrics"
)

// NotFoundTitle and NotFoundMessage make up the lookup-miss alert.
const (
	NotFoundTitle   = "Enrollment"
	NotFoundMessage = "Enrollment not found"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Executor runs fn on the session's event loop and waits for it.
// *timer.Loop implements it.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// EnrollmentLookup is the read side of the enrollment store.
type EnrollmentLookup interface {
	LookupEnrollment(ctx context.Context, id string) (*core.Enrollment, error)
}

// CarouselOptions tunes the carousel of each session.
type CarouselOptions struct {
	Autoplay       bool
	Interval       time.Duration
	ResumeDelay    time.Duration
	SwipeThreshold float64
	// Controls defaults to every control when nil.
	Controls *carousel.Controls
}

// Options are shared by every session a Manager creates.
type Options struct {
	Policies       ratelimit.Policies
	Bindings       gate.Bindings
	Slides         int
	Carousel       CarouselOptions
	DismissAfter   time.Duration
	PrimaryButtons []string

	Stats       stats.Store
	Tracker     analytics.Tracker
	Enrollments EnrollmentLookup
	Logger      *logging.Logger
}

// DefaultOptions returns stock policies, four slides and every control.
func DefaultOptions() Options {
	return Options{
		Policies: ratelimit.DefaultPolicies,
		Bindings: gate.DefaultBindings,
		Slides:   4,
		Carousel: CarouselOptions{
			Autoplay:       true,
			Interval:       carousel.DefaultInterval,
			ResumeDelay:    carousel.DefaultResumeDelay,
			SwipeThreshold: carousel.DefaultSwipeThreshold,
		},
		DismissAfter: notice.DefaultDismissAfter,
	}
}

// Session is one page session.
type Session struct {
	id      string
	created time.Time
	exec    Executor
	timers  timer.Service
	opts    Options
	out     *broadcaster
	release func()

	lastActive atomic.Int64
	closeOnce  sync.Once
	closed     atomic.Bool

	// Owned by the event loop.
	limiters   map[string]*ratelimit.Limiter
	guards     map[gate.Target]func(*Input) bool
	notices    *notice.Surface
	carousel   *carousel.Carousel
	slides     []*projectedHandle
	indicators []*projectedHandle
	trigger    string
	lastIndex  int
}

// New builds a session whose components live on exec. timers must fire
// its callbacks on the same loop.
func New(ctx context.Context, id string, timers timer.Service, exec Executor, opts Options) (*Session, error) {
	if opts.Policies == nil {
		opts.Policies = ratelimit.DefaultPolicies
	}
	if opts.Bindings == nil {
		opts.Bindings = gate.DefaultBindings
	}
	if err := opts.Bindings.Validate(opts.Policies); err != nil {
		return nil, err
	}

	s := &Session{
		id:      id,
		created: timers.Now(),
		exec:    exec,
		timers:  timers,
		opts:    opts,
		out:     newBroadcaster(),
	}
	s.touch()

	if err := exec.Do(ctx, s.init); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return s, nil
}

func (s *Session) init() {
	clock := ratelimit.Clock(s.timers.Now)
	s.limiters = s.opts.Policies.NewLimiters(clock)

	sinks := []notice.Option{
		notice.WithDismissAfter(s.opts.DismissAfter),
		notice.WithSink(projectionSink{out: s.out}),
	}
	if s.opts.Logger != nil {
		sinks = append(sinks, notice.WithSink(notice.LogSink{
			Logger: s.opts.Logger,
			Fields: []zap.Field{zap.String("session_id", s.id)},
		}))
	}
	s.notices = notice.NewSurface(s.timers, sinks...)

	recorder := stats.Tee{gateMetrics{}}
	if s.opts.Stats != nil {
		recorder = append(recorder, s.opts.Stats)
	}

	s.guards = make(map[gate.Target]func(*Input) bool, len(s.opts.Bindings))
	for target, policy := range s.opts.Bindings {
		s.guards[target] = gate.Guard(s.limiters[policy], s.notices, s.perform,
			gate.WithPolicy(policy),
			gate.WithTarget(target),
			gate.WithClock(s.timers.Now),
			gate.WithStats(recorder))
	}

	slides := make([]carousel.SlideHandle, s.opts.Slides)
	indicators := make([]carousel.IndicatorHandle, s.opts.Slides)
	for i := 0; i < s.opts.Slides; i++ {
		slide := &projectedHandle{kind: FrameSlide, index: i, out: s.out}
		dot := &projectedHandle{kind: FrameIndicator, index: i, out: s.out}
		s.slides = append(s.slides, slide)
		s.indicators = append(s.indicators, dot)
		slides[i], indicators[i] = slide, dot
	}

	co := s.opts.Carousel
	controls := carousel.AllControls
	if co.Controls != nil {
		controls = *co.Controls
	}
	s.carousel = carousel.New(s.timers, slides,
		carousel.WithIndicators(indicators),
		carousel.WithAutoplay(co.Autoplay),
		carousel.WithInterval(co.Interval),
		carousel.WithResumeDelay(co.ResumeDelay),
		carousel.WithSwipeThreshold(co.SwipeThreshold),
		carousel.WithControls(controls),
		carousel.WithObserver(s.observeCarousel))
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session started.
func (s *Session) CreatedAt() time.Time { return s.created }

// LastActive returns the time of the most recent input.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() {
	s.lastActive.Store(s.timers.Now().UnixNano())
}

// Dispatch delivers one input and reports its outcome.
func (s *Session) Dispatch(ctx context.Context, in Input) (Outcome, error) {
	if s.closed.Load() {
		return Outcome{}, ErrClosed
	}
	if err := in.Normalize(); err != nil {
		return Outcome{}, err
	}
	s.touch()

	if isPrimaryClick(in, s.opts.PrimaryButtons) {
		s.track(in)
	}

	var out Outcome
	if err := s.exec.Do(ctx, func() { out = s.handle(&in) }); err != nil {
		return Outcome{}, s.loopErr(err)
	}

	if in.Kind == KindLookup && out.Allowed {
		return s.lookup(ctx, in, out)
	}
	return out, nil
}

// isPrimaryClick reports whether in activates a primary call-to-action
// button, either flagged by the host or matched by label.
func isPrimaryClick(in Input, primaryLabels []string) bool {
	if in.Kind != KindClick || in.Target != TargetButton {
		return false
	}
	if in.Primary {
		return true
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return false
	}
	for _, primary := range primaryLabels {
		if strings.EqualFold(label, strings.TrimSpace(primary)) {
			return true
		}
	}
	return false
}

func (s *Session) track(in Input) {
	if s.opts.Tracker == nil {
		return
	}
	s.opts.Tracker.Track("Button", "Click", in.Label)
}

// handle runs on the loop.
func (s *Session) handle(in *Input) Outcome {
	out := Outcome{Kind: in.Kind, Allowed: true}

	switch in.Kind {
	case KindClick, KindSubmit, KindLookup:
		target := gateTarget(in)
		policy, _ := s.opts.Bindings.PolicyFor(target)
		out.Policy = policy
		if guard, ok := s.guards[target]; ok {
			out.Allowed = guard(in)
		} else {
			out.Allowed = s.perform(in)
		}
		s.navigate(in)
	case KindKeyDown:
		s.withTrigger("key", func() { s.carousel.KeyDown(in.Key) })
	case KindTouchStart:
		s.carousel.TouchStart(in.X)
	case KindTouchEnd:
		s.withTrigger("swipe", func() { s.carousel.TouchEnd(in.X) })
	case KindPointerEnter:
		s.carousel.PointerEnter()
	case KindPointerLeave:
		s.carousel.PointerLeave()
	case KindInput:
		out.Value = phone.Mask(in.Value)
		out.Complete = phone.Complete(out.Value)
	case KindCloseAlert:
		s.notices.CloseAlert()
	case KindAutoplay:
		s.carousel.SetAutoplay(in.Enabled)
	}

	out.Prevented = in.prevented
	s.fill(&out)
	return out
}

func gateTarget(in *Input) gate.Target {
	switch {
	case in.Kind == KindSubmit:
		return gate.TargetForm
	case in.Kind == KindClick && in.Target == TargetLink:
		return gate.TargetLink
	default:
		return gate.TargetButton
	}
}

// perform is the gated default action. Buttons and links have no effect of
// their own here, and an admitted lookup continues after the loop returns.
func (s *Session) perform(*Input) bool {
	return true
}

// navigate runs the carousel's own click handlers. They listen next to the
// gate rather than behind it, so a denied click still moves the slide.
func (s *Session) navigate(in *Input) {
	if in.Kind != KindClick {
		return
	}
	switch in.Target {
	case TargetCarouselPrev:
		s.withTrigger("button", s.carousel.ClickPrev)
	case TargetCarouselNext:
		s.withTrigger("button", s.carousel.ClickNext)
	case TargetIndicator:
		s.withTrigger("indicator", func() { s.carousel.ClickIndicator(in.Index) })
	}
}

func (s *Session) withTrigger(trigger string, fn func()) {
	s.trigger = trigger
	defer func() { s.trigger = "" }()
	fn()
}

func (s *Session) observeCarousel(st carousel.State) {
	if st.Index != s.lastIndex {
		s.lastIndex = st.Index
		trigger := s.trigger
		if trigger == "" {
			trigger = "autoplay"
		}
		metrics.RecordCarouselTransition(trigger)
	}
	s.out.publish(Frame{Type: FrameCarousel, Carousel: &st})
}

func (s *Session) fill(out *Outcome) {
	out.Carousel = s.carousel.State()
	if n, ok := s.notices.Current(); ok {
		out.Notice = &n
	}
	if a, ok := s.notices.CurrentAlert(); ok {
		out.Alert = &a
	}
}

// lookup resolves an admitted lookup off the loop, then raises the alert on
// the loop when the enrollment does not exist.
func (s *Session) lookup(ctx context.Context, in Input, out Outcome) (Outcome, error) {
	if s.opts.Enrollments == nil {
		return out, errors.New("enrollment store is not configured")
	}

	start := time.Now()
	enrollment, err := s.opts.Enrollments.LookupEnrollment(ctx, in.ID)
	metrics.RecordEnrollmentLookup(enrollment != nil, time.Since(start))
	if err != nil {
		return out, fmt.Errorf("lookup enrollment: %w", err)
	}
	if enrollment != nil {
		out.Enrollment = enrollment
		return out, nil
	}

	if err := s.exec.Do(ctx, func() {
		s.notices.Alert(NotFoundTitle, NotFoundMessage)
		s.fill(&out)
	}); err != nil {
		return Outcome{}, s.loopErr(err)
	}
	return out, nil
}

// State is a point-in-time view of a session.
type State struct {
	ID         string                        `json:"id"`
	CreatedAt  time.Time                     `json:"created_at"`
	LastActive time.Time                     `json:"last_active"`
	Carousel   carousel.State                `json:"carousel"`
	Slides     []bool                        `json:"slides"`
	Indicators []bool                        `json:"indicators"`
	Notice     *notice.Notice                `json:"notice,omitempty"`
	Alert      *notice.Alert                 `json:"alert,omitempty"`
	Policies   map[string]ratelimit.Snapshot `json:"policies"`
}

// Snapshot returns the session state.
func (s *Session) Snapshot(ctx context.Context) (State, error) {
	if s.closed.Load() {
		return State{}, ErrClosed
	}

	st := State{ID: s.id, CreatedAt: s.created, LastActive: s.LastActive()}
	err := s.exec.Do(ctx, func() {
		var out Outcome
		s.fill(&out)
		st.Carousel, st.Notice, st.Alert = out.Carousel, out.Notice, out.Alert

		st.Slides = make([]bool, len(s.slides))
		for i, h := range s.slides {
			st.Slides[i] = h.active
		}
		st.Indicators = make([]bool, len(s.indicators))
		for i, h := range s.indicators {
			st.Indicators[i] = h.active
		}

		st.Policies = make(map[string]ratelimit.Snapshot, len(s.limiters))
		for name, l := range s.limiters {
			st.Policies[name] = l.Snapshot()
		}
	})
	if err != nil {
		return State{}, s.loopErr(err)
	}
	return st, nil
}

// Subscribe returns a stream of projection frames and a function that ends
// the subscription. The stream closes when the session does.
func (s *Session) Subscribe(buffer int) (<-chan Frame, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	return s.out.subscribe(buffer)
}

// Close tears the session down, cancelling every timer it owns.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		_ = s.exec.Do(ctx, func() {
			if s.carousel != nil {
				s.carousel.Close()
			}
			if s.notices != nil {
				s.notices.Close()
			}
		})
		s.closed.Store(true)
		s.out.close()
		if s.release != nil {
			s.release()
		}
	})
}

func (s *Session) loopErr(err error) error {
	if errors.Is(err, timer.ErrLoopClosed) {
		return ErrClosed
	}
	return err
}

// gateMetrics exports gate decisions as telemetry counters.
type gateMetrics struct{}

func (gateMetrics) Record(_ context.Context, ev stats.Event) error {
	metrics.RecordGateDecision(ev.Policy, ev.Allowed)
	return nil
}
