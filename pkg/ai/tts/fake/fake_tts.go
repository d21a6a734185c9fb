// Package fake provides a recording Speaker for tests.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/pitchpal/pitchpal-go/pkg/ai/tts"
)

// FakeSpeaker implements tts.Speaker and records every utterance.
type FakeSpeaker struct {
	mu         sync.Mutex
	utterances []string
	err        error
	delay      time.Duration
}

// NewFakeSpeaker creates a speaker that completes immediately.
func NewFakeSpeaker() *FakeSpeaker {
	return &FakeSpeaker{}
}

// FailWith makes every subsequent Speak call return err.
func (f *FakeSpeaker) FailWith(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// SetDelay simulates playback time.
func (f *FakeSpeaker) SetDelay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

// Speak records the text and returns after the configured delay.
func (f *FakeSpeaker) Speak(ctx context.Context, text string, params tts.VoiceParams) error {
	f.mu.Lock()
	f.utterances = append(f.utterances, text)
	err := f.err
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Utterances returns everything spoken so far.
func (f *FakeSpeaker) Utterances() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.utterances))
	copy(out, f.utterances)
	return out
}
