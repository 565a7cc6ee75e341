package timer

import (
	"sync"
	"time"
)

// Manual is a virtual clock implementing Service. Time only moves when
// Advance or Set is called, and due callbacks run on the caller's goroutine
// in due-time order.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	nextID Handle
	tasks  map[Handle]*manualTask
}

type manualTask struct {
	id     Handle
	due    time.Time
	period time.Duration
	fn     func()
}

// NewManual returns a virtual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:   start,
		tasks: make(map[Handle]*manualTask),
	}
}

// Schedule implements Service.
func (m *Manual) Schedule(fn func(), d time.Duration) Handle {
	return m.add(fn, d, 0)
}

// ScheduleRepeating implements Service.
func (m *Manual) ScheduleRepeating(fn func(), period time.Duration) Handle {
	if period <= 0 {
		period = time.Millisecond
	}
	return m.add(fn, period, period)
}

func (m *Manual) add(fn func(), d, period time.Duration) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.tasks[id] = &manualTask{id: id, due: m.now.Add(d), period: period, fn: fn}
	return id
}

// Cancel implements Service.
func (m *Manual) Cancel(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, h)
}

// Now implements Service.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of scheduled tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves the clock forward by d, running every callback that falls
// due on the way.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	m.runUntil(target)
}

// Set moves the clock to t. Moving backwards only changes Now.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	if !t.After(m.now) {
		m.now = t
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.runUntil(t)
}

func (m *Manual) runUntil(target time.Time) {
	for {
		m.mu.Lock()
		task := m.nextDue(target)
		if task == nil {
			m.now = target
			m.mu.Unlock()
			return
		}

		m.now = task.due
		if task.period > 0 {
			task.due = task.due.Add(task.period)
		} else {
			delete(m.tasks, task.id)
		}
		fn := task.fn
		m.mu.Unlock()

		fn()
	}
}

func (m *Manual) nextDue(target time.Time) *manualTask {
	var next *manualTask
	for _, task := range m.tasks {
		if task.due.After(target) {
			continue
		}
		if next == nil || task.due.Before(next.due) || (task.due.Equal(next.due) && task.id < next.id) {
			next = task
		}
	}
	return next
}
