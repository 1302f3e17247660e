package session

import "github.com/dgnsrekt/drill/internal/deck"

// EventType identifies what happened in a session.
type EventType int

const (
	EventPhaseChanged EventType = iota
	EventItemStarted
	EventItemCompleted
	EventItemSkipped
	EventRoundCompleted
	EventSessionCompleted
	EventNarrationFailed
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventPhaseChanged:
		return "phase-changed"
	case EventItemStarted:
		return "item-started"
	case EventItemCompleted:
		return "item-completed"
	case EventItemSkipped:
		return "item-skipped"
	case EventRoundCompleted:
		return "round-completed"
	case EventSessionCompleted:
		return "session-completed"
	case EventNarrationFailed:
		return "narration-failed"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners registered with OnEvent.
type Event struct {
	Type  EventType
	State State

	// Item is set for item events.
	Item deck.Item

	// Err is set for EventNarrationFailed.
	Err error

	// Message is the celebration shown with EventSessionCompleted.
	Message string
}

var celebrations = []string{"Nice job!", "You're getting there!"}
