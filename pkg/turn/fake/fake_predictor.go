// Package fake provides a settable turn-completion predictor for tests.
package fake

import "sync"

// FakePredictor implements turn.Completion with a value the test controls.
type FakePredictor struct {
	mu       sync.Mutex
	complete bool
}

// NewFakePredictor creates a predictor that initially predicts no
// completion.
func NewFakePredictor() *FakePredictor {
	return &FakePredictor{}
}

// SetComplete sets the value returned by PredictTurnCompletion.
func (f *FakePredictor) SetComplete(v bool) {
	f.mu.Lock()
	f.complete = v
	f.mu.Unlock()
}

// PredictTurnCompletion returns the scripted value.
func (f *FakePredictor) PredictTurnCompletion() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.complete
}
