// Package fake provides scriptable generation doubles for testing the
// response coordinator and session controller without a remote endpoint.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/pitchpal/pitchpal-go/pkg/ai/llm"
)

// FakeGenerator implements llm.Generator with canned responses.
type FakeGenerator struct {
	mu        sync.Mutex
	responses []string
	next      int
	err       error
	delay     time.Duration
	calls     int
	histories [][]llm.Message
}

// NewFakeGenerator creates a generator cycling through the given responses.
func NewFakeGenerator(responses ...string) *FakeGenerator {
	if len(responses) == 0 {
		responses = []string{"I'm listening."}
	}
	return &FakeGenerator{responses: responses}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (f *FakeGenerator) FailWith(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// SetDelay makes each call block for d before returning, to simulate
// endpoint latency.
func (f *FakeGenerator) SetDelay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

// CallCount returns how many times GenerateResponse has been invoked,
// including failed calls.
func (f *FakeGenerator) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastHistory returns the conversation history from the most recent call.
func (f *FakeGenerator) LastHistory() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.histories) == 0 {
		return nil
	}
	return f.histories[len(f.histories)-1]
}

// GenerateResponse returns the next canned response.
func (f *FakeGenerator) GenerateResponse(ctx context.Context, history []llm.Message, difficulty llm.Difficulty) (string, error) {
	f.mu.Lock()
	f.calls++
	f.histories = append(f.histories, history)
	err := f.err
	delay := f.delay
	text := f.responses[f.next%len(f.responses)]
	f.next++
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// FakeFeedback implements llm.FeedbackGenerator with a fixed result.
type FakeFeedback struct {
	mu       sync.Mutex
	feedback llm.Feedback
	err      error
	calls    int
}

// NewFakeFeedback creates a feedback generator returning a fixed result.
func NewFakeFeedback() *FakeFeedback {
	return &FakeFeedback{
		feedback: llm.Feedback{
			Strengths:    []string{"Clear opening"},
			Improvements: []string{"Address the objection directly"},
		},
	}
}

// FailWith makes every subsequent call return err.
func (f *FakeFeedback) FailWith(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// CallCount returns how many times GenerateFeedback has been invoked.
func (f *FakeFeedback) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// GenerateFeedback returns the fixed feedback.
func (f *FakeFeedback) GenerateFeedback(ctx context.Context, transcript, script string) (llm.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return llm.Feedback{}, f.err
	}
	return f.feedback, nil
}
