package vad

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	// DefaultAveragePause seeds the pause EMA before any real pause is seen.
	DefaultAveragePause = 800 * time.Millisecond
	// DefaultMinimumPauseForTurnEnd is 1.5x the default average pause.
	DefaultMinimumPauseForTurnEnd = 1200 * time.Millisecond
	// DefaultSmoothing is the EMA smoothing factor applied to pause lengths.
	DefaultSmoothing = 0.3
	// DefaultSensitivity maps to a -40 dB threshold.
	DefaultSensitivity = 50
	// DefaultFrameInterval approximates one analysis per display tick.
	DefaultFrameInterval = 10 * time.Millisecond

	// MinEnergyDb is the floor returned for all-zero frames, where the dB
	// conversion would otherwise be log10(0).
	MinEnergyDb = -100.0

	turnEndPauseFactor = 1.5
)

// Config configures a Detector. The zero value is usable; defaults are
// applied by New.
type Config struct {
	// Sensitivity 0-100; linearly mapped to a -60..-20 dB threshold.
	Sensitivity int
	// Smoothing is the EMA factor for pause statistics (default 0.3).
	Smoothing float64
	// FrameInterval is the cadence of the internal analysis loop.
	FrameInterval time.Duration
	// Observer receives speech start/end events. Optional.
	Observer Observer
	// Logger is used for diagnostics. Optional.
	Logger *slog.Logger
	// Now overrides the clock for tests. Optional.
	Now func() time.Time
}

// Detector classifies analysis frames as speaking or silent and keeps the
// adaptive pause statistics current. All methods are safe for concurrent
// use; the queued pause statistics are guarded by a single mutex since the
// analysis loop and the polling predictor run on separate goroutines.
type Detector struct {
	mu       sync.Mutex
	source   FrameSource
	profile  PatternProfile
	silence  SilenceState
	released bool

	smoothing     float64
	frameInterval time.Duration
	observer      Observer
	logger        *slog.Logger
	now           func() time.Time

	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// New creates a Detector with the given configuration.
func New(cfg Config) *Detector {
	if cfg.Smoothing <= 0 || cfg.Smoothing >= 1 {
		cfg.Smoothing = DefaultSmoothing
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	sensitivity := cfg.Sensitivity
	if sensitivity <= 0 {
		sensitivity = DefaultSensitivity
	}

	d := &Detector{
		smoothing:     cfg.Smoothing,
		frameInterval: cfg.FrameInterval,
		observer:      cfg.Observer,
		logger:        cfg.Logger,
		now:           cfg.Now,
	}
	d.resetLocked()
	d.profile.SensitivityThresholdDb = thresholdForSensitivity(sensitivity)
	return d
}

// Initialize attaches the detector to a live audio analyzer. It fails if
// the platform analyzer is unavailable; it never requests microphone
// permission itself.
func (d *Detector) Initialize(source FrameSource) error {
	if source == nil {
		return fmt.Errorf("%w: no audio analyzer available", ErrFatal)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	threshold := d.profile.SensitivityThresholdDb
	d.resetLocked()
	d.profile.SensitivityThresholdDb = threshold
	d.source = source
	d.released = false
	return nil
}

// Start launches the frame-analysis loop. Each tick analyzes one frame
// until the context is cancelled or Teardown is called.
func (d *Detector) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.source == nil {
		d.mu.Unlock()
		return fmt.Errorf("%w: detector not initialized", ErrFatal)
	}
	if d.loopCancel != nil {
		d.mu.Unlock()
		return nil // already running
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.loopCancel = cancel
	d.loopDone = done
	interval := d.frameInterval
	d.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if _, err := d.AnalyzeFrame(); err != nil {
					d.logger.Debug("frame analysis failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
	return nil
}

// AnalyzeFrame reads one energy snapshot, classifies it, and advances the
// speaking/silent state machine. Intended to run once per analysis tick.
func (d *Detector) AnalyzeFrame() (FrameResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.source == nil || d.released {
		return FrameResult{}, fmt.Errorf("%w: detector not initialized", ErrFatal)
	}

	bins, err := d.source.EnergySnapshot()
	if err != nil {
		d.emit(Event{Type: EventError, Timestamp: d.now(), Err: err})
		return FrameResult{}, fmt.Errorf("%w: energy snapshot: %v", ErrRecoverable, err)
	}

	energyDb := energyDb(bins)
	speaking := energyDb > d.profile.SensitivityThresholdDb
	now := d.now()

	switch {
	case speaking && !d.silence.IsSpeaking:
		// Silent -> Speaking: fold the finished pause into the moving
		// average before clearing it.
		if !d.silence.PauseStart.IsZero() && d.silence.CurrentPause > 0 {
			d.updatePauseAverageLocked(d.silence.CurrentPause)
		}
		d.silence.IsSpeaking = true
		d.silence.PauseStart = time.Time{}
		d.silence.CurrentPause = 0
		d.emit(Event{Type: EventSpeechStart, Timestamp: now, EnergyDb: energyDb})

	case !speaking && d.silence.IsSpeaking:
		// Speaking -> Silent: the pause clock starts now.
		d.silence.IsSpeaking = false
		d.silence.PauseStart = now
		d.silence.CurrentPause = 0
		d.emit(Event{Type: EventSpeechEnd, Timestamp: now, EnergyDb: energyDb})

	case !speaking && !d.silence.IsSpeaking:
		if !d.silence.PauseStart.IsZero() {
			d.silence.CurrentPause = now.Sub(d.silence.PauseStart)
		}

	default:
		// Speaking -> Speaking: nothing to update.
	}

	return FrameResult{
		EnergyDb:    energyDb,
		IsSpeaking:  d.silence.IsSpeaking,
		PauseLength: d.silence.CurrentPause,
	}, nil
}

// SetSensitivity maps a 0-100 level onto the -60 dB (most sensitive) to
// -20 dB (least sensitive) threshold range.
func (d *Detector) SetSensitivity(level int) {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profile.SensitivityThresholdDb = thresholdForSensitivity(level)
}

// Reset restores the pattern profile and silence state to their defaults
// for a fresh session. The sensitivity threshold is preserved.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	threshold := d.profile.SensitivityThresholdDb
	d.resetLocked()
	d.profile.SensitivityThresholdDb = threshold
}

// Teardown stops the analysis loop and releases the audio analyzer.
// Idempotent: calling it again is a no-op.
func (d *Detector) Teardown() error {
	d.mu.Lock()
	cancel := d.loopCancel
	done := d.loopDone
	d.loopCancel = nil
	d.loopDone = nil
	source := d.source
	alreadyReleased := d.released
	d.released = true
	d.source = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if alreadyReleased || source == nil {
		return nil
	}
	return source.Close()
}

// IsSpeaking reports whether the most recent frame was classified as speech.
func (d *Detector) IsSpeaking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.silence.IsSpeaking
}

// CurrentPause returns the length of the silence in progress.
func (d *Detector) CurrentPause() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.silence.CurrentPause
}

// AveragePause returns the adaptive pause-length moving average.
func (d *Detector) AveragePause() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.profile.AveragePause
}

// Profile returns a snapshot of the current pattern profile.
func (d *Detector) Profile() PatternProfile {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.profile
}

func (d *Detector) resetLocked() {
	d.profile = PatternProfile{
		AveragePause:           DefaultAveragePause,
		MinimumPauseForTurnEnd: DefaultMinimumPauseForTurnEnd,
		SensitivityThresholdDb: thresholdForSensitivity(DefaultSensitivity),
		SessionStart:           d.now(),
	}
	d.silence = SilenceState{}
}

// updatePauseAverageLocked folds one observed pause into the EMA and keeps
// the turn-end minimum in lockstep at 1.5x the average.
func (d *Detector) updatePauseAverageLocked(pause time.Duration) {
	avg := d.smoothing*float64(pause) + (1-d.smoothing)*float64(d.profile.AveragePause)
	d.profile.AveragePause = time.Duration(avg)
	d.profile.MinimumPauseForTurnEnd = time.Duration(turnEndPauseFactor * avg)
}

func (d *Detector) emit(e Event) {
	if d.observer != nil {
		d.observer.OnSpeechEvent(e)
	}
}

func thresholdForSensitivity(level int) float64 {
	return -60 + float64(level)/100*40
}

// energyDb computes the RMS of the frequency bins and converts it to a
// decibel scale relative to full-scale (255). All-zero frames clamp to
// MinEnergyDb instead of producing -Inf.
func energyDb(bins []byte) float64 {
	if len(bins) == 0 {
		return MinEnergyDb
	}
	var sum float64
	for _, b := range bins {
		v := float64(b)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(bins)))
	if rms == 0 {
		return MinEnergyDb
	}
	db := 20 * math.Log10(rms/255)
	if math.IsNaN(db) || math.IsInf(db, 0) || db < MinEnergyDb {
		return MinEnergyDb
	}
	return db
}
