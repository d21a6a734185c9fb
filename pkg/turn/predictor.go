// Package turn decides whether a human speaker has likely finished a
// conversational turn, based on the speech activity detector's live pause
// statistics.
package turn

import "time"

// DefaultPauseFactor is the soft-threshold multiplier applied to the
// average pause length. Deliberately below the confirmed turn-end minimum
// (1.5x) so the system reacts before the pause is certain, trading false
// positives for lower perceived latency.
const DefaultPauseFactor = 0.8

// PauseStats is the read-only view a predictor needs from the speech
// activity detector.
type PauseStats interface {
	IsSpeaking() bool
	CurrentPause() time.Duration
	AveragePause() time.Duration
}

// Completion predicts whether the current speaker has finished their turn.
type Completion interface {
	PredictTurnCompletion() bool
}

// Predictor implements Completion over live pause statistics. It holds no
// state of its own; every prediction reads the detector's current values.
type Predictor struct {
	stats       PauseStats
	pauseFactor float64
}

// NewPredictor creates a predictor over the given pause statistics.
// A non-positive pauseFactor falls back to DefaultPauseFactor.
func NewPredictor(stats PauseStats, pauseFactor float64) *Predictor {
	if pauseFactor <= 0 {
		pauseFactor = DefaultPauseFactor
	}
	return &Predictor{stats: stats, pauseFactor: pauseFactor}
}

// PredictTurnCompletion returns true only when the speaker is currently
// silent and the silence has outlasted pauseFactor times the adaptive
// average pause length.
func (p *Predictor) PredictTurnCompletion() bool {
	if p.stats.IsSpeaking() {
		return false
	}
	threshold := time.Duration(p.pauseFactor * float64(p.stats.AveragePause()))
	return p.stats.CurrentPause() > threshold
}
