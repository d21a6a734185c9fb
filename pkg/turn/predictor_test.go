package turn

import (
	"testing"
	"time"
)

type stubStats struct {
	speaking bool
	current  time.Duration
	average  time.Duration
}

func (s *stubStats) IsSpeaking() bool            { return s.speaking }
func (s *stubStats) CurrentPause() time.Duration { return s.current }
func (s *stubStats) AveragePause() time.Duration { return s.average }

func TestPredictTurnCompletion(t *testing.T) {
	tests := []struct {
		name  string
		stats stubStats
		want  bool
	}{
		{
			name:  "speaking never completes",
			stats: stubStats{speaking: true, current: 5 * time.Second, average: 800 * time.Millisecond},
			want:  false,
		},
		{
			name: "long silence over soft threshold",
			// 1500ms > 800ms * 0.8 = 640ms
			stats: stubStats{current: 1500 * time.Millisecond, average: 800 * time.Millisecond},
			want:  true,
		},
		{
			name:  "silence under soft threshold",
			stats: stubStats{current: 600 * time.Millisecond, average: 800 * time.Millisecond},
			want:  false,
		},
		{
			name:  "exactly at threshold is not complete",
			stats: stubStats{current: 640 * time.Millisecond, average: 800 * time.Millisecond},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPredictor(&tt.stats, 0)
			if got := p.PredictTurnCompletion(); got != tt.want {
				t.Errorf("PredictTurnCompletion() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredictorCustomFactor(t *testing.T) {
	stats := &stubStats{current: 500 * time.Millisecond, average: 800 * time.Millisecond}

	// 500ms > 800ms*0.5 = 400ms with a lower factor.
	if !NewPredictor(stats, 0.5).PredictTurnCompletion() {
		t.Error("factor 0.5 should predict completion at 500ms")
	}
	// 500ms < 800ms*0.8 = 640ms with the default.
	if NewPredictor(stats, 0).PredictTurnCompletion() {
		t.Error("default factor should not predict completion at 500ms")
	}
}
