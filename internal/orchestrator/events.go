package orchestrator

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// EventType is the kind of processing event.
type EventType string

const (
	// EventStarted indicates processing of a work item has begun.
	EventStarted EventType = "started"
	// EventEvaluated indicates the readiness verdict is known.
	EventEvaluated EventType = "evaluated"
	// EventFeedbackPosted indicates a feedback comment was added.
	EventFeedbackPosted EventType = "feedback_posted"
	// EventGenerated indicates child drafts were produced.
	EventGenerated EventType = "generated"
	// EventChildrenCreated indicates the children exist in the tracker.
	EventChildrenCreated EventType = "children_created"
	// EventFinished indicates processing ended with any status.
	EventFinished EventType = "finished"
)

// Event is emitted as a work item moves through processing.
type Event struct {
	Type        EventType
	ExecutionID string
	WorkItemID  int
	Message     string
	// Count is the number of drafts or created children, when relevant.
	Count     int
	Status    Status
	Timestamp time.Time
}

// EventEmitter delivers events to a single subscriber without blocking the
// processor for long.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	logger       *slog.Logger
}

// NewEventEmitter creates an EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int, logger *slog.Logger) *EventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventEmitter{events: make(chan Event, bufferSize), logger: logger}
}

// Emit sends an event, waiting briefly when the buffer is full before
// dropping it.
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			e.logger.Warn("event buffer full, dropped event", "type", event.Type, "dropped", count)
		}
	}
}

// DroppedCount returns the number of dropped events.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the subscriber side of the emitter.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Emit must not be called afterwards.
func (e *EventEmitter) Close() {
	close(e.events)
}
