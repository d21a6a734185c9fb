package session

import (
	"time"

	"github.com/pitchpal/pitchpal-go/pkg/ai/llm"
	"github.com/pitchpal/pitchpal-go/pkg/script"
)

// EventType identifies a session lifecycle or transcript event.
type EventType int

const (
	EventSessionStarted EventType = iota
	EventSessionStopped
	EventTurnAppended
	EventResponseQueued
	EventSuggestionChanged
	EventFeedbackReady
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventSessionStarted:
		return "session_started"
	case EventSessionStopped:
		return "session_stopped"
	case EventTurnAppended:
		return "turn_appended"
	case EventResponseQueued:
		return "response_queued"
	case EventSuggestionChanged:
		return "suggestion_changed"
	case EventFeedbackReady:
		return "feedback_ready"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a session notification. Only the fields relevant to the type
// are populated.
type Event struct {
	Type       EventType
	Timestamp  time.Time
	Turn       *Turn
	Suggestion *script.Suggestion
	Feedback   *llm.Feedback
	Err        error
}

// Observer receives session events. Injected at construction so tests can
// assert on emitted events without global state.
type Observer interface {
	OnSessionEvent(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnSessionEvent(e Event) { f(e) }
