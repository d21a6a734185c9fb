package vad

import (
	"math"
	"testing"
	"time"
)

// scriptedSource implements FrameSource with a settable uniform level.
type scriptedSource struct {
	level  byte
	closed int
}

func (s *scriptedSource) EnergySnapshot() ([]byte, error) {
	bins := make([]byte, 32)
	for i := range bins {
		bins[i] = s.level
	}
	return bins, nil
}

func (s *scriptedSource) Close() error {
	s.closed++
	return nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestDetector(t *testing.T, src FrameSource, clock *fakeClock, obs Observer) *Detector {
	t.Helper()
	d := New(Config{Observer: obs, Now: clock.Now})
	if err := d.Initialize(src); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return d
}

func TestAnalyzeFrameAllZeroClampsEnergy(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	src := &scriptedSource{level: 0}
	d := newTestDetector(t, src, clock, nil)

	res, err := d.AnalyzeFrame()
	if err != nil {
		t.Fatalf("AnalyzeFrame() error = %v", err)
	}
	if res.EnergyDb != MinEnergyDb {
		t.Errorf("EnergyDb = %v, want %v", res.EnergyDb, MinEnergyDb)
	}
	if math.IsNaN(res.EnergyDb) || math.IsInf(res.EnergyDb, 0) {
		t.Errorf("EnergyDb must never be NaN or Inf, got %v", res.EnergyDb)
	}
	if res.IsSpeaking {
		t.Error("all-zero frame must classify as silent")
	}
}

func TestSetSensitivityLinearity(t *testing.T) {
	tests := []struct {
		level int
		want  float64
	}{
		{0, -60},
		{50, -40},
		{100, -20},
	}

	clock := &fakeClock{t: time.Unix(1000, 0)}
	d := newTestDetector(t, &scriptedSource{}, clock, nil)

	for _, tt := range tests {
		d.SetSensitivity(tt.level)
		got := d.Profile().SensitivityThresholdDb
		if got != tt.want {
			t.Errorf("SetSensitivity(%d) threshold = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestStateMachineTransitions(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	src := &scriptedSource{level: 0}

	var events []Event
	d := newTestDetector(t, src, clock, ObserverFunc(func(e Event) {
		events = append(events, e)
	}))

	// Silent -> Silent: no event, no pause clock yet (no speech has happened).
	mustAnalyze(t, d)
	if len(events) != 0 {
		t.Fatalf("expected no events during initial silence, got %d", len(events))
	}

	// Silent -> Speaking.
	src.level = 200
	res := mustAnalyze(t, d)
	if !res.IsSpeaking {
		t.Fatal("expected speaking classification at level 200")
	}
	if len(events) != 1 || events[0].Type != EventSpeechStart {
		t.Fatalf("expected one speech_start event, got %+v", events)
	}

	// Speaking -> Speaking: no-op.
	clock.Advance(20 * time.Millisecond)
	mustAnalyze(t, d)
	if len(events) != 1 {
		t.Fatalf("speaking->speaking must not emit events, got %d", len(events))
	}

	// Speaking -> Silent: pause clock starts.
	src.level = 0
	mustAnalyze(t, d)
	if len(events) != 2 || events[1].Type != EventSpeechEnd {
		t.Fatalf("expected speech_end event, got %+v", events)
	}

	// Silent -> Silent: pause accumulates.
	clock.Advance(500 * time.Millisecond)
	res = mustAnalyze(t, d)
	if res.PauseLength != 500*time.Millisecond {
		t.Errorf("PauseLength = %v, want 500ms", res.PauseLength)
	}

	// Silent -> Speaking again: the 500ms pause folds into the EMA.
	src.level = 200
	mustAnalyze(t, d)
	if len(events) != 3 || events[2].Type != EventSpeechStart {
		t.Fatalf("expected second speech_start event, got %+v", events)
	}

	// EMA: 0.3*500ms + 0.7*800ms = 710ms, turn-end minimum 1.5x that.
	profile := d.Profile()
	wantAvg := 710 * time.Millisecond
	if diff := profile.AveragePause - wantAvg; diff < -time.Millisecond || diff > time.Millisecond {
		t.Errorf("AveragePause = %v, want ~%v", profile.AveragePause, wantAvg)
	}
	wantMin := time.Duration(1.5 * float64(profile.AveragePause))
	if profile.MinimumPauseForTurnEnd != wantMin {
		t.Errorf("MinimumPauseForTurnEnd = %v, want %v", profile.MinimumPauseForTurnEnd, wantMin)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	src := &scriptedSource{level: 200}
	d := newTestDetector(t, src, clock, nil)

	mustAnalyze(t, d) // speaking
	src.level = 0
	mustAnalyze(t, d) // pause starts
	clock.Advance(2 * time.Second)
	mustAnalyze(t, d)
	src.level = 200
	mustAnalyze(t, d) // EMA updated

	d.SetSensitivity(90)
	d.Reset()

	profile := d.Profile()
	if profile.AveragePause != DefaultAveragePause {
		t.Errorf("AveragePause after reset = %v, want %v", profile.AveragePause, DefaultAveragePause)
	}
	if profile.MinimumPauseForTurnEnd != DefaultMinimumPauseForTurnEnd {
		t.Errorf("MinimumPauseForTurnEnd after reset = %v, want %v", profile.MinimumPauseForTurnEnd, DefaultMinimumPauseForTurnEnd)
	}
	// Sensitivity is a user setting, not session state.
	if got := profile.SensitivityThresholdDb; got != -24 {
		t.Errorf("threshold after reset = %v, want -24", got)
	}
	if d.IsSpeaking() {
		t.Error("detector must be silent after reset")
	}
}

func TestTeardownIdempotent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	src := &scriptedSource{}
	d := newTestDetector(t, src, clock, nil)

	if err := d.Teardown(); err != nil {
		t.Fatalf("first Teardown() error = %v", err)
	}
	if err := d.Teardown(); err != nil {
		t.Fatalf("second Teardown() error = %v", err)
	}
	if src.closed != 1 {
		t.Errorf("source closed %d times, want 1", src.closed)
	}

	if _, err := d.AnalyzeFrame(); err == nil {
		t.Error("AnalyzeFrame after Teardown must fail")
	}
}

func TestInitializeNilSourceFails(t *testing.T) {
	d := New(Config{})
	if err := d.Initialize(nil); err == nil {
		t.Fatal("Initialize(nil) must fail")
	}
}

func mustAnalyze(t *testing.T, d *Detector) FrameResult {
	t.Helper()
	res, err := d.AnalyzeFrame()
	if err != nil {
		t.Fatalf("AnalyzeFrame() error = %v", err)
	}
	return res
}
