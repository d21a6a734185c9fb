// Package tts defines the text-to-speech playback contract used to voice
// the AI persona's turns.
package tts

import (
	"context"

	"github.com/pitchpal/pitchpal-go/pkg/ai"
)

// TTS-specific error variables for backward compatibility
var (
	// ErrRecoverable indicates a temporary synthesis failure that may
	// succeed if retried. Examples: service overload, network issues.
	ErrRecoverable = ai.ErrRecoverable

	// ErrFatal indicates a permanent synthesis failure.
	// Examples: invalid voice ID, permanent quota exceeded.
	ErrFatal = ai.ErrFatal
)

// VoiceParams controls how synthesized speech sounds.
type VoiceParams struct {
	Voice string
	Rate  float32 // 1.0 is normal speed
	Pitch float32 // 1.0 is normal pitch
}

// Speaker converts text to audible speech.
type Speaker interface {
	// Speak synthesizes and plays the text, blocking until playback
	// completes or the context is cancelled.
	Speak(ctx context.Context, text string, params VoiceParams) error
}
