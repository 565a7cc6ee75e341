package stats

import (
	"context"
	"sync"
)

// MemoryStore keeps counters in process memory. It never expires entries.
type MemoryStore struct {
	mu       sync.Mutex
	total    Counters
	byPolicy map[string]Counters
	byTarget map[string]Counters
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byPolicy: make(map[string]Counters),
		byTarget: make(map[string]Counters),
	}
}

func (s *MemoryStore) Record(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Allowed)

	c := s.byPolicy[ev.Policy]
	c.add(ev.Allowed)
	s.byPolicy[ev.Policy] = c

	if ev.Target != "" {
		t := s.byTarget[ev.Target]
		t.add(ev.Allowed)
		s.byTarget[ev.Target] = t
	}
	return nil
}

func (s *MemoryStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStore) ByPolicy() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byPolicy))
	for k, v := range s.byPolicy {
		out[k] = v
	}
	return out
}

func (s *MemoryStore) ByTarget() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byTarget))
	for k, v := range s.byTarget {
		out[k] = v
	}
	return out
}
