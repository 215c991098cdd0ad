// Package diag provides the diagnostics sink injected into every processing
// component. There is no package-level logger; callers pass a Sink in.
package diag

import (
	"sync"
)

// Fields carries structured key/value context for a diagnostics event.
type Fields map[string]interface{}

// Sink receives diagnostics events from processing components.
type Sink interface {
	Debug(component, message string, fields Fields)
	Info(component, message string, fields Fields)
	Warn(component, message string, fields Fields)
	Error(component string, err error, fields Fields)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Debug(string, string, Fields) {}
func (Nop) Info(string, string, Fields)  {}
func (Nop) Warn(string, string, Fields)  {}
func (Nop) Error(string, error, Fields)  {}

// OrNop returns s, or a Nop sink when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Event is one diagnostics event captured by a Recorder.
type Event struct {
	Level     string
	Component string
	Message   string
	Err       error
	Fields    Fields
}

// Recorder keeps every event in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Debug(component, message string, fields Fields) {
	r.record(Event{Level: "debug", Component: component, Message: message, Fields: fields})
}

func (r *Recorder) Info(component, message string, fields Fields) {
	r.record(Event{Level: "info", Component: component, Message: message, Fields: fields})
}

func (r *Recorder) Warn(component, message string, fields Fields) {
	r.record(Event{Level: "warn", Component: component, Message: message, Fields: fields})
}

func (r *Recorder) Error(component string, err error, fields Fields) {
	r.record(Event{Level: "error", Component: component, Err: err, Fields: fields})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Level returns the recorded events of one level.
func (r *Recorder) Level(level string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
