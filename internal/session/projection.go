package session

import (
	"sync"

	"github.com/oasislearninghub/oasis/internal/core/carousel"
	"github.com/oasislearninghub/oasis/internal/core/notice"
	"github.com/oasislearninghub/oasis/internal/metrics"
)

// FrameType names a projection update.
type FrameType string

const (
	FrameSlide         FrameType = "slide"
	FrameIndicator     FrameType = "indicator"
	FrameCarousel      FrameType = "carousel"
	FrameNotice        FrameType = "notice"
	FrameNoticeRemoved FrameType = "notice_removed"
	FrameAlert         FrameType = "alert"
	FrameAlertClosed   FrameType = "alert_closed"
)

// Frame is one state-to-display update pushed to subscribers.
type Frame struct {
	Seq      uint64          `json:"seq"`
	Type     FrameType       `json:"type"`
	Index    int             `json:"index,omitempty"`
	Active   bool            `json:"active,omitempty"`
	Carousel *carousel.State `json:"carousel,omitempty"`
	Notice   *notice.Notice  `json:"notice,omitempty"`
	Alert    *notice.Alert   `json:"alert,omitempty"`
}

// broadcaster fans frames out to subscribers. A subscriber that falls
// behind misses frames rather than stalling the event loop.
type broadcaster struct {
	mu     sync.Mutex
	seq    uint64
	nextID int
	subs   map[int]chan Frame
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Frame)}
}

func (b *broadcaster) publish(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.seq++
	f.Seq = b.seq
	for _, ch := range b.subs {
		select {
		case ch <- f:
		default:
		}
	}
}

func (b *broadcaster) subscribe(buffer int) (<-chan Frame, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Frame, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// projectedHandle is a slide or indicator whose display state is pushed to
// subscribers. The active flag is only kept for snapshots.
type projectedHandle struct {
	kind   FrameType
	index  int
	active bool
	out    *broadcaster
}

func (h *projectedHandle) SetActive(active bool) {
	h.active = active
	h.out.publish(Frame{Type: h.kind, Index: h.index, Active: active})
}

// projectionSink publishes notices and alerts.
type projectionSink struct {
	out *broadcaster
}

func (s projectionSink) ShowNotice(n notice.Notice) {
	metrics.RecordNotice(string(n.Severity))
	s.out.publish(Frame{Type: FrameNotice, Notice: &n})
}

func (s projectionSink) RemoveNotice(n notice.Notice) {
	s.out.publish(Frame{Type: FrameNoticeRemoved, Notice: &n})
}

func (s projectionSink) ShowAlert(a notice.Alert) {
	s.out.publish(Frame{Type: FrameAlert, Alert: &a})
}

func (s projectionSink) CloseAlert() {
	s.out.publish(Frame{Type: FrameAlertClosed})
}
