// Package vad implements speech activity detection over a live audio
// analyzer. It classifies each analysis frame as speaking or silent from
// short-window RMS energy and maintains adaptive pause statistics used by
// turn-completion prediction.
package vad

import (
	"time"

	"github.com/pitchpal/pitchpal-go/pkg/ai"
)

// VAD-specific error variables for backward compatibility
var (
	// ErrRecoverable indicates a temporary detection failure that may succeed
	// if retried. Example: a transient snapshot read failure.
	ErrRecoverable = ai.ErrRecoverable

	// ErrFatal indicates a permanent detection failure.
	// Examples: no audio device, analyzer could not be created.
	ErrFatal = ai.ErrFatal
)

// FrameSource is the narrow capability interface over the platform audio
// analyzer. The detector only ever asks for the current frequency-energy
// snapshot and releases the handle when done; acquiring microphone
// permission is the caller's job.
type FrameSource interface {
	// EnergySnapshot returns the current frequency bin magnitudes,
	// one byte per bin scaled 0-255.
	EnergySnapshot() ([]byte, error)

	// Close releases the underlying analyzer. Must be safe to call
	// multiple times.
	Close() error
}

// EventType represents the type of speech activity event.
type EventType int

const (
	EventSpeechStart EventType = iota
	EventSpeechEnd
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventSpeechStart:
		return "speech_start"
	case EventSpeechEnd:
		return "speech_end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a speech activity notification emitted on state transitions.
type Event struct {
	Type      EventType
	Timestamp time.Time
	EnergyDb  float64
	Err       error
}

// Observer receives speech activity events. Observers are injected at
// construction so tests can assert on emitted events without global state.
type Observer interface {
	OnSpeechEvent(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnSpeechEvent(e Event) { f(e) }

// PatternProfile holds the adaptive pause statistics for one session.
// AveragePause is an exponential moving average of observed pause lengths;
// MinimumPauseForTurnEnd is always recomputed as 1.5x the average.
type PatternProfile struct {
	AveragePause           time.Duration
	MinimumPauseForTurnEnd time.Duration
	SensitivityThresholdDb float64
	SessionStart           time.Time
}

// SilenceState tracks the current speaking/silent classification and the
// length of the pause in progress.
type SilenceState struct {
	IsSpeaking   bool
	PauseStart   time.Time // zero when no pause is accumulating
	CurrentPause time.Duration
}

// FrameResult is the outcome of analyzing a single frame. Consumed
// immediately; never persisted.
type FrameResult struct {
	EnergyDb    float64
	IsSpeaking  bool
	PauseLength time.Duration
}
