// Package analytics records user interactions. Tracking is best effort and
// never affects the interaction it describes.
package analytics

import (
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/oasislearninghub/oasis/internal/metrics"
)

// Event is one tracked interaction.
type Event struct {
	Category string `json:"category"`
	Action   string `json:"action"`
	Label    string `json:"label,omitempty"`
}

// Tracker receives interaction events.
type Tracker interface {
	Track(category, action, label string)
}

// LogTracker writes each event as a structured log line and counts it.
type LogTracker struct {
	Logger *logging.Logger
	Fields []zap.Field
}

func (t LogTracker) Track(category, action, label string) {
	metrics.RecordAnalyticsEvent(category, action)
	if t.Logger == nil {
		return
	}
	fields := append([]zap.Field{
		zap.String("category", category),
		zap.String("action", action),
		zap.String("label", strings.TrimSpace(label)),
	}, t.Fields...)
	t.Logger.Info("Event", fields...)
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Track(category, action, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Category: category, Action: action, Label: strings.TrimSpace(label)})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
