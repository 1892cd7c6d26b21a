package jobs

import (
	"sync"
	"time"

	"multi-transcriber/internal/domain"
)

// EventType classifies messages emitted during job execution.
type EventType string

const (
	EventTypeStatus   EventType = "status"
	EventTypeProgress EventType = "progress"
	EventTypeFile     EventType = "file"
	EventTypeResult   EventType = "result"
	EventTypeError    EventType = "error"
)

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq        int64             `json:"seq"`
	Timestamp  time.Time         `json:"timestamp"`
	JobID      string            `json:"jobId,omitempty"`
	Kind       domain.JobKind    `json:"kind,omitempty"`
	Type       EventType         `json:"type"`
	Status     domain.JobStatus  `json:"status,omitempty"`
	Path       string            `json:"path,omitempty"`
	FileStatus domain.FileStatus `json:"fileStatus,omitempty"`
	Progress   float64           `json:"progress,omitempty"`
	Mode       domain.Mode       `json:"mode,omitempty"`
	Text       string            `json:"text,omitempty"`
	Message    string            `json:"message,omitempty"`
	ErrorKind  string            `json:"errorKind,omitempty"`
	Command    string            `json:"command,omitempty"`
	ExitCode   int               `json:"exitCode,omitempty"`
	Stderr     string            `json:"stderr,omitempty"`
}

// EventBus stores recent events and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	listeners []func(Event)
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Subscribe registers fn to receive every event published afterwards, in
// sequence order.
func (b *EventBus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	// Listeners run under the lock so delivery order matches Seq.
	for _, fn := range b.listeners {
		fn(event)
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
