package wav

import (
	"fmt"
	"math"
	"sync"

	"github.com/pitchpal/pitchpal-go/pkg/rtc"
)

// energyBins is the number of bins in each snapshot handed to the
// silence detector.
const energyBins = 32

// Source replays a recorded call as energy snapshots so a session can be
// driven from a WAV file instead of a live microphone. Each EnergySnapshot
// call consumes one 10ms frame; once the recording is exhausted the source
// reports silence, which lets the detector observe the trailing pause.
type Source struct {
	mu     sync.Mutex
	frames []rtc.AudioFrame
	pos    int
	closed bool
}

// NewSource opens a WAV file and loads its frames for replay.
func NewSource(filename string) (*Source, error) {
	r, err := NewReader(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	frames, err := r.ReadFrames()
	if err != nil {
		return nil, fmt.Errorf("failed to load recording: %w", err)
	}

	return &Source{frames: frames}, nil
}

// NewSourceFromFrames builds a replay source from frames already in memory.
func NewSourceFromFrames(frames []rtc.AudioFrame) *Source {
	return &Source{frames: frames}
}

// EnergySnapshot returns the energy distribution of the next frame.
func (s *Source) EnergySnapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("source is closed")
	}

	bins := make([]byte, energyBins)
	if s.pos >= len(s.frames) {
		return bins, nil // silence after the recording ends
	}

	level := frameLevel(s.frames[s.pos])
	s.pos++

	for i := range bins {
		bins[i] = level
	}
	return bins, nil
}

// Remaining reports how many frames have not been consumed yet.
func (s *Source) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) - s.pos
}

// Close releases the source. Further snapshot calls fail.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// frameLevel maps a frame's RMS amplitude onto the 0-255 scale the
// detector expects.
func frameLevel(frame rtc.AudioFrame) byte {
	samples := frame.Samples()
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))

	level := rms / math.MaxInt16 * 255
	if level > 255 {
		level = 255
	}
	return byte(level)
}
