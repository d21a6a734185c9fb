// Package fake provides a scriptable transcriber for tests.
package fake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pitchpal/pitchpal-go/pkg/ai/stt"
)

// FakeTranscriber implements stt.Transcriber. Tests emit segments with
// EmitSegment; Stop returns the joined final segments.
type FakeTranscriber struct {
	mu       sync.Mutex
	segments chan stt.Segment
	finals   []string
	started  bool
	stopped  bool
	startErr error
}

// NewFakeTranscriber creates an idle fake transcriber.
func NewFakeTranscriber() *FakeTranscriber {
	return &FakeTranscriber{segments: make(chan stt.Segment, 16)}
}

// RejectStart makes the next Start call fail with err.
func (f *FakeTranscriber) RejectStart(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

// Start begins the fake session.
func (f *FakeTranscriber) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.started && !f.stopped {
		return fmt.Errorf("%w: transcriber already started", stt.ErrFatal)
	}
	f.started = true
	f.stopped = false
	return nil
}

// EmitSegment pushes a segment to the consumer, recording finals for Stop.
func (f *FakeTranscriber) EmitSegment(text string, final bool) {
	f.mu.Lock()
	if final {
		f.finals = append(f.finals, text)
	}
	f.mu.Unlock()

	f.segments <- stt.Segment{Text: text, IsFinal: final, Timestamp: time.Now()}
}

// Segments returns the segment channel.
func (f *FakeTranscriber) Segments() <-chan stt.Segment {
	return f.segments
}

// Stop ends the session and returns the accumulated final transcript.
func (f *FakeTranscriber) Stop() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return "", fmt.Errorf("%w: transcriber not started", stt.ErrFatal)
	}
	if f.stopped {
		return "", fmt.Errorf("%w: transcriber already stopped", stt.ErrFatal)
	}
	f.stopped = true
	close(f.segments)
	return strings.Join(f.finals, " "), nil
}

// Started reports whether Start has been called successfully.
func (f *FakeTranscriber) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started && !f.stopped
}
