package carousel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oasislearninghub/oasis/internal/core/timer"
)

type handle struct{ active bool }

func (h *handle) SetActive(active bool) { h.active = active }

func newTestCarousel(t *testing.T, n int, opts ...Option) (*Carousel, *timer.Manual, []*handle, []*handle) {
	t.Helper()
	clock := timer.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	slides := make([]*handle, n)
	dots := make([]*handle, n)
	slideHandles := make([]SlideHandle, n)
	dotHandles := make([]IndicatorHandle, n)
	for i := range slides {
		slides[i], dots[i] = &handle{}, &handle{}
		slideHandles[i], dotHandles[i] = slides[i], dots[i]
	}

	opts = append([]Option{WithIndicators(dotHandles)}, opts...)
	return New(clock, slideHandles, opts...), clock, slides, dots
}

func activeIndexes(hs []*handle) []int {
	var out []int
	for i, h := range hs {
		if h.active {
			out = append(out, i)
		}
	}
	return out
}

func TestNewProjectsFirstSlideAndStartsAutoplay(t *testing.T) {
	c, clock, slides, dots := newTestCarousel(t, 3)

	require.Equal(t, []int{0}, activeIndexes(slides))
	require.Equal(t, []int{0}, activeIndexes(dots))
	require.True(t, c.State().AutoplayRunning)
	require.Equal(t, 1, clock.Pending())
}

func TestNextCyclicClosure(t *testing.T) {
	c, _, slides, _ := newTestCarousel(t, 4, WithAutoplay(false))

	for i := 0; i < 4; i++ {
		c.Next()
	}
	require.Equal(t, 0, c.Index())
	require.Equal(t, []int{0}, activeIndexes(slides))
}

func TestPrevWrapsToLast(t *testing.T) {
	c, _, slides, dots := newTestCarousel(t, 5, WithAutoplay(false))

	c.Prev()
	require.Equal(t, 4, c.Index())
	require.Equal(t, []int{4}, activeIndexes(slides))
	require.Equal(t, []int{4}, activeIndexes(dots))
}

func TestAutoplayTicks(t *testing.T) {
	c, clock, _, _ := newTestCarousel(t, 3)

	clock.Advance(3999 * time.Millisecond)
	require.Equal(t, 0, c.Index())
	clock.Advance(time.Millisecond)
	require.Equal(t, 1, c.Index())
	clock.Advance(8 * time.Second)
	require.Equal(t, 0, c.Index())
}

func TestGoToStopsAndResumes(t *testing.T) {
	c, clock, slides, _ := newTestCarousel(t, 4)

	require.NoError(t, c.GoTo(2))
	require.Equal(t, 2, c.Index())
	require.Equal(t, []int{2}, activeIndexes(slides))

	st := c.State()
	require.False(t, st.AutoplayRunning)
	require.True(t, st.ResumePending)

	clock.Advance(5 * time.Second)
	require.True(t, c.State().AutoplayRunning)
	require.False(t, c.State().ResumePending)
	require.Equal(t, 2, c.Index())

	clock.Advance(4 * time.Second)
	require.Equal(t, 3, c.Index())
}

func TestGoToRestartsQuietPeriod(t *testing.T) {
	c, clock, _, _ := newTestCarousel(t, 4)

	require.NoError(t, c.GoTo(1))
	clock.Advance(3 * time.Second)
	require.NoError(t, c.GoTo(3))
	clock.Advance(3 * time.Second)
	require.False(t, c.State().AutoplayRunning)
	clock.Advance(2 * time.Second)
	require.True(t, c.State().AutoplayRunning)
	require.Equal(t, 1, clock.Pending())
}

func TestGoToOutOfRange(t *testing.T) {
	c, _, _, _ := newTestCarousel(t, 3)

	require.ErrorIs(t, c.GoTo(3), ErrIndexOutOfRange)
	require.ErrorIs(t, c.GoTo(-1), ErrIndexOutOfRange)
	require.Equal(t, 0, c.Index())
	require.True(t, c.State().AutoplayRunning)
}

func TestStopAutoplayIdempotent(t *testing.T) {
	c, clock, _, _ := newTestCarousel(t, 3)

	c.StopAutoplay()
	require.False(t, c.State().AutoplayRunning)
	c.StopAutoplay()
	require.False(t, c.State().AutoplayRunning)
	require.Equal(t, 0, clock.Pending())
}

func TestStartAutoplayNeverDoubles(t *testing.T) {
	c, clock, _, _ := newTestCarousel(t, 3)

	c.StartAutoplay()
	c.PointerLeave()
	require.Equal(t, 1, clock.Pending())

	clock.Advance(4 * time.Second)
	require.Equal(t, 1, c.Index())
}

func TestGoToThenPointerLeaveKeepsSingleTimer(t *testing.T) {
	c, clock, _, _ := newTestCarousel(t, 4)

	require.NoError(t, c.GoTo(1))
	c.PointerLeave()
	require.True(t, c.State().AutoplayRunning)

	clock.Advance(5 * time.Second)
	require.Equal(t, 1, clock.Pending())
	require.Equal(t, 2, c.Index())
}

func TestHoverPausesAndResumes(t *testing.T) {
	c, clock, _, _ := newTestCarousel(t, 3)

	c.PointerEnter()
	clock.Advance(10 * time.Second)
	require.Equal(t, 0, c.Index())

	c.PointerLeave()
	clock.Advance(4 * time.Second)
	require.Equal(t, 1, c.Index())
}

func TestPointerEnterKeepsPendingResume(t *testing.T) {
	c, clock, _, _ := newTestCarousel(t, 3)

	require.NoError(t, c.GoTo(2))
	c.PointerEnter()
	require.True(t, c.State().ResumePending)

	clock.Advance(5 * time.Second)
	require.True(t, c.State().AutoplayRunning)
	require.False(t, c.State().ResumePending)

	clock.Advance(4 * time.Second)
	require.Equal(t, 0, c.Index())
}

func TestSwipeThresholdIsStrict(t *testing.T) {
	c, _, _, _ := newTestCarousel(t, 4, WithAutoplay(false))

	c.TouchStart(200)
	c.TouchEnd(150)
	require.Equal(t, 0, c.Index())

	c.TouchStart(200)
	c.TouchEnd(250)
	require.Equal(t, 0, c.Index())

	c.TouchStart(200)
	c.TouchEnd(149)
	require.Equal(t, 1, c.Index())

	c.TouchStart(200)
	c.TouchEnd(251)
	require.Equal(t, 0, c.Index())
}

func TestTouchEndWithoutStartUsesLastStart(t *testing.T) {
	c, _, _, _ := newTestCarousel(t, 3, WithAutoplay(false))

	c.TouchEnd(-51)
	require.Equal(t, 1, c.Index())

	c.TouchStart(300)
	c.TouchEnd(200)
	c.TouchEnd(200)
	require.Equal(t, 0, c.Index())
}

func TestKeyDown(t *testing.T) {
	c, _, _, _ := newTestCarousel(t, 3, WithAutoplay(false))

	c.KeyDown(KeyArrowRight)
	require.Equal(t, 1, c.Index())
	c.KeyDown(KeyArrowLeft)
	c.KeyDown(KeyArrowLeft)
	require.Equal(t, 2, c.Index())
	c.KeyDown("Enter")
	require.Equal(t, 2, c.Index())
}

func TestAbsentControlsDisableOnlyTheirSource(t *testing.T) {
	c, _, _, _ := newTestCarousel(t, 3,
		WithAutoplay(false),
		WithControls(Controls{Next: true}))

	c.ClickPrev()
	require.Equal(t, 0, c.Index())
	c.ClickIndicator(2)
	require.Equal(t, 0, c.Index())
	c.TouchStart(100)
	c.TouchEnd(0)
	require.Equal(t, 0, c.Index())

	c.ClickNext()
	require.Equal(t, 1, c.Index())
	c.KeyDown(KeyArrowRight)
	require.Equal(t, 2, c.Index())
}

func TestClickIndicator(t *testing.T) {
	c, clock, _, dots := newTestCarousel(t, 3)

	c.ClickIndicator(2)
	require.Equal(t, []int{2}, activeIndexes(dots))
	require.True(t, c.State().ResumePending)

	c.ClickIndicator(7)
	require.Equal(t, 2, c.Index())
	require.Equal(t, 1, clock.Pending())
}

func TestEmptyCarouselIsInert(t *testing.T) {
	clock := timer.NewManual(time.Now())
	c := New(clock, nil)

	require.True(t, c.Inert())
	require.Equal(t, 0, clock.Pending())

	c.Next()
	c.Prev()
	c.KeyDown(KeyArrowRight)
	c.TouchEnd(-100)
	c.PointerLeave()
	c.StartAutoplay()
	require.ErrorIs(t, c.GoTo(0), ErrIndexOutOfRange)
	require.Equal(t, 0, clock.Pending())
	require.Equal(t, State{AutoplayEnabled: true}, c.State())
}

func TestCloseCancelsTimers(t *testing.T) {
	c, clock, _, _ := newTestCarousel(t, 3)

	require.NoError(t, c.GoTo(1))
	c.PointerLeave()
	require.Equal(t, 2, clock.Pending())

	c.Close()
	require.Equal(t, 0, clock.Pending())
}

func TestObserverSeesTransitions(t *testing.T) {
	var seen []State
	c, _, _, _ := newTestCarousel(t, 3, WithAutoplay(false), WithObserver(func(s State) {
		seen = append(seen, s)
	}))

	c.Next()
	require.NotEmpty(t, seen)
	require.Equal(t, 1, seen[len(seen)-1].Index)
	require.Equal(t, 3, seen[len(seen)-1].Count)
}

func TestSetAutoplay(t *testing.T) {
	c, clock, _, _ := newTestCarousel(t, 3)

	require.NoError(t, c.GoTo(1))
	c.SetAutoplay(false)
	require.Equal(t, 0, clock.Pending())
	require.False(t, c.State().ResumePending)
	c.PointerLeave()
	require.False(t, c.State().AutoplayRunning)

	c.SetAutoplay(true)
	require.True(t, c.State().AutoplayRunning)
}
