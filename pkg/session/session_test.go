package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/pitchpal/pitchpal-go/pkg/ai/llm"
	llmfake "github.com/pitchpal/pitchpal-go/pkg/ai/llm/fake"
	sttfake "github.com/pitchpal/pitchpal-go/pkg/ai/stt/fake"
	ttsfake "github.com/pitchpal/pitchpal-go/pkg/ai/tts/fake"
	"github.com/pitchpal/pitchpal-go/pkg/ai/vad"
	vadfake "github.com/pitchpal/pitchpal-go/pkg/ai/vad/fake"
	"github.com/pitchpal/pitchpal-go/pkg/respond"
	"github.com/pitchpal/pitchpal-go/pkg/script"
	"github.com/pitchpal/pitchpal-go/pkg/turn"
	turnfake "github.com/pitchpal/pitchpal-go/pkg/turn/fake"
)

type sessionClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *sessionClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *sessionClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func practiceGraph() script.Graph {
	return script.Graph{
		Nodes: []script.Node{
			{ID: "p1", Role: script.RolePersona, Text: "Hello?"},
			{ID: "h1", Role: script.RoleHuman, Text: "Hi, this is Sam from Acme."},
			{ID: "h2", Role: script.RoleHuman, Text: "I'll only take thirty seconds.", IntentTag: "time"},
			{ID: "h3", Role: script.RoleHuman, Text: "Would Thursday work for a demo?"},
		},
	}
}

type fixture struct {
	session     *Session
	source      *vadfake.FakeSource
	detector    *vad.Detector
	generator   *llmfake.FakeGenerator
	coordinator *respond.Coordinator
	transcriber *sttfake.FakeTranscriber
	speaker     *ttsfake.FakeSpeaker
	feedback    *llmfake.FakeFeedback
	clock       *sessionClock
}

func newFixture(t *testing.T, predictor turn.Completion) *fixture {
	t.Helper()

	f := &fixture{
		source:      vadfake.NewFakeSource(),
		generator:   llmfake.NewFakeGenerator("Who is this?", "I'm listening.", "Go on."),
		transcriber: sttfake.NewFakeTranscriber(),
		speaker:     ttsfake.NewFakeSpeaker(),
		feedback:    llmfake.NewFakeFeedback(),
		clock:       &sessionClock{t: time.Unix(5000, 0)},
	}
	f.detector = vad.New(vad.Config{Now: f.clock.Now, FrameInterval: 5 * time.Millisecond})
	if predictor == nil {
		predictor = turn.NewPredictor(f.detector, 0)
	}
	f.coordinator = respond.NewCoordinator(f.generator, respond.Config{
		DebounceWindow: 300 * time.Millisecond,
		PollInterval:   20 * time.Millisecond,
	})

	sess, err := New(Config{
		Detector:    f.detector,
		Predictor:   predictor,
		Coordinator: f.coordinator,
		Transcriber: f.transcriber,
		Speaker:     f.speaker,
		Feedback:    f.feedback,
		AcquireSource: func(ctx context.Context) (vad.FrameSource, error) {
			return f.source, nil
		},
		Graph:      practiceGraph(),
		Difficulty: llm.DifficultyMedium,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.session = sess
	return f
}

func TestStartPersonaSpeaksFirst(t *testing.T) {
	f := newFixture(t, turnfake.NewFakePredictor())

	if err := f.session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.session.Stop()

	if f.session.State() != StateCapturing {
		t.Errorf("State() = %v, want Capturing", f.session.State())
	}

	transcript := f.session.Transcript()
	if len(transcript) != 1 {
		t.Fatalf("transcript length = %d, want 1 opening turn", len(transcript))
	}
	if transcript[0].Speaker != SpeakerProspect {
		t.Errorf("opening speaker = %q, want %q", transcript[0].Speaker, SpeakerProspect)
	}
	if transcript[0].Text != "Who is this?" {
		t.Errorf("opening text = %q", transcript[0].Text)
	}

	// The opening line was claimed directly, not left in the queued slot.
	if f.coordinator.PeekQueued() {
		t.Error("opening line must not remain queued")
	}

	// The initial suggestion is the first human-role line, confidence 100.
	sug := f.session.CurrentSuggestion()
	if sug.NodeID != "h1" || sug.Confidence != 100 {
		t.Errorf("initial suggestion = %+v, want h1 at confidence 100", sug)
	}
}

func TestStartWhileCapturingRejected(t *testing.T) {
	f := newFixture(t, turnfake.NewFakePredictor())

	if err := f.session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.session.Stop()

	if err := f.session.Start(context.Background()); !errors.Is(err, ErrAlreadyCapturing) {
		t.Errorf("second Start() error = %v, want ErrAlreadyCapturing", err)
	}
}

func TestStopWhileIdleRejected(t *testing.T) {
	f := newFixture(t, turnfake.NewFakePredictor())

	if err := f.session.Stop(); !errors.Is(err, ErrNotCapturing) {
		t.Errorf("Stop() while idle error = %v, want ErrNotCapturing", err)
	}
}

func TestStartAcquisitionFailureLeavesNoPartialState(t *testing.T) {
	f := newFixture(t, turnfake.NewFakePredictor())
	acquireErr := errors.New("no audio device")

	sess, err := New(Config{
		Detector:    f.detector,
		Predictor:   turnfake.NewFakePredictor(),
		Coordinator: f.coordinator,
		Transcriber: f.transcriber,
		AcquireSource: func(ctx context.Context) (vad.FrameSource, error) {
			return nil, acquireErr
		},
		Graph: practiceGraph(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := sess.Start(context.Background()); !errors.Is(err, acquireErr) {
		t.Fatalf("Start() error = %v, want acquisition failure", err)
	}
	if sess.State() != StateIdle {
		t.Errorf("State() = %v after failed start, want Idle", sess.State())
	}
	if f.transcriber.Started() {
		t.Error("transcriber must not be running after failed acquisition")
	}
	if f.generator.CallCount() != 0 {
		t.Error("no generation may happen after failed acquisition")
	}
}

func TestStartTranscriberRejectionUnwindsDetector(t *testing.T) {
	f := newFixture(t, turnfake.NewFakePredictor())
	f.transcriber.RejectStart(errors.New("service rejected stream"))

	if err := f.session.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail when transcription is rejected")
	}
	if f.session.State() != StateIdle {
		t.Errorf("State() = %v, want Idle", f.session.State())
	}
	if f.source.CloseCount() != 1 {
		t.Errorf("source closed %d times, want 1 (released on unwind)", f.source.CloseCount())
	}
}

func TestTranscriptOrderingAcrossStop(t *testing.T) {
	is := is.New(t)
	f := newFixture(t, turnfake.NewFakePredictor())

	is.NoErr(f.session.Start(context.Background()))

	// A response generated early, while still capturing. The opening
	// line consumed the debounce window, so let it lapse first.
	time.Sleep(310 * time.Millisecond)
	_, err := f.coordinator.GenerateResponse(context.Background(), nil, llm.DifficultyMedium)
	is.NoErr(err)
	is.True(f.coordinator.PeekQueued())

	// Injection is gated while capturing.
	is.True(f.session.MaybeInjectQueued(context.Background()) == nil)

	f.transcriber.EmitSegment("I understand you're busy", true)
	is.NoErr(f.session.Stop())

	// After stop the human's final line is in the transcript and the
	// queued response is still injectable, strictly after it.
	injected := f.session.MaybeInjectQueued(context.Background())
	is.True(injected != nil)

	transcript := f.session.Transcript()
	is.Equal(len(transcript), 3)                       // opening, human, injected reply
	is.Equal(transcript[1].Speaker, SpeakerYou)        // human line comes first
	is.Equal(transcript[1].Text, "I understand you're busy")
	is.Equal(transcript[2].Speaker, SpeakerProspect)   // AI reply strictly after
	is.Equal(transcript[2].ID, injected.ID)

	// Consume-once: nothing left to inject.
	is.True(f.session.MaybeInjectQueued(context.Background()) == nil)
}

func TestPauseGatesInjection(t *testing.T) {
	f := newFixture(t, turnfake.NewFakePredictor())

	if err := f.session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(310 * time.Millisecond) // let the opening debounce window lapse
	if _, err := f.coordinator.GenerateResponse(context.Background(), nil, llm.DifficultyMedium); err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}
	if err := f.session.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	f.session.Pause()
	if f.session.MaybeInjectQueued(context.Background()) != nil {
		t.Error("injection must be held while paused")
	}
	f.session.Resume()
	if f.session.MaybeInjectQueued(context.Background()) == nil {
		t.Error("injection must proceed after resume")
	}
}

func TestLiveSegmentsDriveSuggestions(t *testing.T) {
	f := newFixture(t, turnfake.NewFakePredictor())

	if err := f.session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.session.Stop()

	f.transcriber.EmitSegment("I'm really busy right now, call me later", true)

	// The segment consumer runs on its own goroutine.
	deadline := time.Now().Add(time.Second)
	for {
		if sug := f.session.CurrentSuggestion(); sug.NodeID == "h2" {
			if sug.Confidence != 90 {
				t.Errorf("suggestion confidence = %d, want 90 for intent match", sug.Confidence)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("suggestion never moved to h2, still %+v", f.session.CurrentSuggestion())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFeedbackFireAndForget(t *testing.T) {
	f := newFixture(t, turnfake.NewFakePredictor())
	f.feedback.FailWith(errors.New("feedback endpoint down"))

	if err := f.session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.transcriber.EmitSegment("thanks for your time", true)

	// Stop must succeed even though feedback will fail.
	if err := f.session.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for f.feedback.CallCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("feedback endpoint never called")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := f.session.Feedback(); ok {
		t.Error("failed feedback must not be stored")
	}
}

func TestFeedbackStoredOnSuccess(t *testing.T) {
	f := newFixture(t, turnfake.NewFakePredictor())

	if err := f.session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.session.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		if fb, ok := f.session.Feedback(); ok {
			if len(fb.Strengths) == 0 {
				t.Error("feedback strengths empty")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("feedback never stored")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestEndToEndPredictiveGeneration walks the full loop: the persona opens,
// the human speaks and falls silent, the predictor flags the pause, and the
// poll loop dispatches exactly one generation inside the debounce window.
func TestEndToEndPredictiveGeneration(t *testing.T) {
	is := is.New(t)
	f := newFixture(t, nil) // real predictor over the live detector

	is.NoErr(f.session.Start(context.Background()))
	defer f.session.Stop()

	is.Equal(f.generator.CallCount(), 1) // opening line only

	// Let the opening debounce window lapse in real time.
	time.Sleep(320 * time.Millisecond)

	// Human speaks, then stops: a pause starts accumulating.
	f.source.SetLevel(200)
	time.Sleep(30 * time.Millisecond)
	f.source.SetLevel(0)
	time.Sleep(30 * time.Millisecond)

	// 1.5s of silence on the session clock; the default average pause is
	// 800ms, so 1500 > 800*0.8 = 640 and the predictor fires.
	f.clock.Advance(1500 * time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for f.generator.CallCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("predictive generation never dispatched")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The predictor keeps reporting completion, yet further poll ticks
	// inside the same debounce window must not dispatch again.
	time.Sleep(150 * time.Millisecond)
	is.Equal(f.generator.CallCount(), 2)

	is.True(f.coordinator.PeekQueued()) // the reply waits for injection
}
