package session

import (
	"fmt"
	"sync"
	"time"
)

// EventKind labels a diagnostic event.
type EventKind string

// Diagnostic event kinds recorded by the session.
const (
	EventClaim       EventKind = "claim"
	EventPlayStart   EventKind = "play_start"
	EventPlayEnd     EventKind = "play_end"
	EventPlayError   EventKind = "play_error"
	EventSynthError  EventKind = "synth_error"
	EventPreload     EventKind = "preload"
	EventLifecycle   EventKind = "lifecycle"
	EventAudioLocked EventKind = "audio_locked"
	EventStale       EventKind = "stale_result"
)

// Event is one entry in the session's rolling diagnostic log.
type Event struct {
	Time    time.Time
	Kind    EventKind
	Message string
}

// DefaultEventLogSize caps the rolling log when no size is configured.
const DefaultEventLogSize = 64

// EventLog keeps a bounded, rolling record of recent internal events so
// no error is ever swallowed without a diagnostic trace. Oldest entries
// are evicted first.
type EventLog struct {
	mu      sync.Mutex
	entries []Event
	limit   int
}

// NewEventLog creates a log holding at most limit entries.
func NewEventLog(limit int) *EventLog {
	if limit <= 0 {
		limit = DefaultEventLogSize
	}
	return &EventLog{limit: limit}
}

// Record appends an event, evicting the oldest entry when full.
func (l *EventLog) Record(kind EventKind, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Event{
		Time:    time.Now(),
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

// Recent returns a copy of the log, oldest first.
func (l *EventLog) Recent() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
