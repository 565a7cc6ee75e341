package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oasislearninghub/oasis/internal/core/timer"
	"github.com/oasislearninghub/oasis/internal/metrics"
)

// ErrTooManySessions is returned by Create when the session cap is reached.
var ErrTooManySessions = errors.New("too many active sessions")

// Manager creates, finds and expires sessions. Each session gets its own
// event loop.
type Manager struct {
	opts        Options
	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time
	logger      *logging.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	// pending counts slots reserved by Create calls still building.
	pending int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithIdleTTL expires sessions without input for d. Zero disables expiry.
func WithIdleTTL(d time.Duration) ManagerOption {
	return func(m *Manager) { m.idleTTL = d }
}

// WithMaxSessions caps the number of live sessions. Zero means no cap.
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) { m.maxSessions = n }
}

// WithManagerClock sets the clock used for idle expiry.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager returns a manager building sessions with opts.
func NewManager(opts Options, mopts ...ManagerOption) *Manager {
	m := &Manager{
		opts:     opts,
		now:      time.Now,
		logger:   opts.Logger,
		sessions: make(map[string]*Session),
	}
	for _, opt := range mopts {
		opt(m)
	}
	return m
}

// Create starts a new session on its own loop.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions)+m.pending >= m.maxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.pending++
	m.mu.Unlock()

	id := uuid.NewString()
	loop := timer.NewLoop(timer.WithClock(m.now))
	s, err := New(ctx, id, loop, loop, m.opts)

	m.mu.Lock()
	m.pending--
	if err != nil {
		m.mu.Unlock()
		loop.Close()
		return nil, err
	}
	s.release = loop.Close
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.SetActiveSessions(count)
	if m.logger != nil {
		m.logger.Debug("Session created", zap.String("session_id", id))
	}
	return s, nil
}

// Get returns the live session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close ends the session with id. It reports whether the session existed.
func (m *Manager) Close(ctx context.Context, id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Close(ctx)
	metrics.SetActiveSessions(count)
	return true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// IDs returns the live session ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reap closes sessions idle for longer than the idle TTL and returns how
// many it closed.
func (m *Manager) Reap(ctx context.Context) int {
	if m.idleTTL <= 0 {
		return 0
	}

	cutoff := m.now().Add(-m.idleTTL)
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.Close(ctx)
		if m.logger != nil {
			m.logger.Debug("Session expired", zap.String("session_id", s.ID()))
		}
	}
	if len(expired) > 0 {
		metrics.SetActiveSessions(count)
	}
	return len(expired)
}

// Run reaps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.idleTTL <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Reap(ctx); n > 0 && m.logger != nil {
				m.logger.Info("Expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Shutdown closes every session.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close(ctx)
	}
	metrics.SetActiveSessions(0)
}
