// Package fake provides a scriptable FrameSource for testing the speech
// activity detector without a real audio analyzer.
package fake

import (
	"sync"
)

// FakeSource is a FrameSource whose energy snapshots are fed by the test.
// If no snapshot has been queued, the most recently set level is repeated,
// so a test can hold "loud" or "silent" across many frames.
type FakeSource struct {
	mu      sync.Mutex
	queued  [][]byte
	current []byte
	closed  int
}

// NewFakeSource creates a source that starts out silent (all-zero bins).
func NewFakeSource() *FakeSource {
	return &FakeSource{current: make([]byte, 32)}
}

// SetLevel replaces the repeated snapshot with uniform bins at the given
// magnitude (0-255). 0 simulates pure silence.
func (f *FakeSource) SetLevel(level byte) {
	bins := make([]byte, 32)
	for i := range bins {
		bins[i] = level
	}
	f.mu.Lock()
	f.current = bins
	f.mu.Unlock()
}

// QueueSnapshot appends a one-shot snapshot returned before the repeated
// level. Snapshots are consumed in FIFO order.
func (f *FakeSource) QueueSnapshot(bins []byte) {
	f.mu.Lock()
	f.queued = append(f.queued, bins)
	f.mu.Unlock()
}

// EnergySnapshot returns the next queued snapshot, or the repeated level.
func (f *FakeSource) EnergySnapshot() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queued) > 0 {
		bins := f.queued[0]
		f.queued = f.queued[1:]
		return bins, nil
	}
	return f.current, nil
}

// Close records the release. Safe to call multiple times.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

// CloseCount returns how many times Close has been called.
func (f *FakeSource) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
