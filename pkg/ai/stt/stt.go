// Package stt defines the live transcription contract. A transcriber is a
// session-scoped collaborator: started once, it pushes incremental
// transcript segments while capture runs, and yields the final transcript
// text when stopped.
package stt

import (
	"context"
	"time"

	"github.com/pitchpal/pitchpal-go/pkg/ai"
	"github.com/pitchpal/pitchpal-go/pkg/rtc"
)

// STT-specific error variables for backward compatibility
var (
	// ErrRecoverable indicates a temporary transcription failure that may
	// succeed if retried. Examples: network timeout, service unavailable.
	ErrRecoverable = ai.ErrRecoverable

	// ErrFatal indicates a permanent transcription failure.
	// Examples: unsupported language, authentication failure.
	ErrFatal = ai.ErrFatal
)

// Segment is one incremental transcription result. Interim segments may be
// revised; final segments won't change.
type Segment struct {
	Text      string
	IsFinal   bool
	Timestamp time.Time
}

// Transcriber is an active live-transcription session.
type Transcriber interface {
	// Start begins transcription. Returns an error if the service rejects
	// the session; no partial state is left running on failure.
	Start(ctx context.Context) error

	// Segments returns the channel of incremental results. The channel is
	// closed after Stop.
	Segments() <-chan Segment

	// Stop ends transcription and returns the final transcript text
	// accumulated over the session.
	Stop() (string, error)
}

// FrameWriter is implemented by transcribers that consume PCM frames
// pushed from the capture loop rather than attaching to the platform
// recognizer directly.
type FrameWriter interface {
	Push(frame rtc.AudioFrame) error
}
