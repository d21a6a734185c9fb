// Package session implements the top-level controller for one practice
// conversation. It composes microphone capture, speech activity detection,
// live transcription, predictive response generation, intent-driven script
// suggestions, and text-to-speech playback into a single Idle -> Capturing
// -> Idle state machine, and serializes everything into an ordered
// transcript.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pitchpal/pitchpal-go/pkg/ai/llm"
	"github.com/pitchpal/pitchpal-go/pkg/ai/stt"
	"github.com/pitchpal/pitchpal-go/pkg/ai/tts"
	"github.com/pitchpal/pitchpal-go/pkg/ai/vad"
	"github.com/pitchpal/pitchpal-go/pkg/intent"
	"github.com/pitchpal/pitchpal-go/pkg/respond"
	"github.com/pitchpal/pitchpal-go/pkg/script"
	"github.com/pitchpal/pitchpal-go/pkg/turn"
)

// Session state machine errors.
var (
	ErrAlreadyCapturing = errors.New("session is already capturing")
	ErrNotCapturing     = errors.New("session is not capturing")
)

// State is the session's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCapturing:
		return "Capturing"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(s))
	}
}

// Speaker labels for transcript turns.
const (
	SpeakerYou      = "You"
	SpeakerProspect = "Prospect"
)

// Turn is one entry in the append-only conversation transcript.
type Turn struct {
	ID        string
	Speaker   string
	Text      string
	Timestamp time.Time
}

// SourceFunc acquires the live audio analyzer. Microphone permission is
// assumed granted upstream; a failure here is fatal to starting a session.
type SourceFunc func(ctx context.Context) (vad.FrameSource, error)

// Config wires a session's collaborators. Detector, Predictor, Coordinator,
// Transcriber and AcquireSource are required; the rest are optional.
type Config struct {
	Detector      *vad.Detector
	Predictor     turn.Completion
	Coordinator   *respond.Coordinator
	Transcriber   stt.Transcriber
	Speaker       tts.Speaker
	Feedback      llm.FeedbackGenerator
	AcquireSource SourceFunc

	Graph      script.Graph
	Difficulty llm.Difficulty
	Voice      tts.VoiceParams

	// FeedbackTimeout bounds the fire-and-forget feedback call at session
	// end. Default 30s.
	FeedbackTimeout time.Duration

	Observer Observer
	Logger   *slog.Logger
}

// Session is the conversation orchestrator for one practice run. Only one
// capture may be active at a time; Start while capturing is rejected.
type Session struct {
	cfg    Config
	engine *script.Engine
	logger *slog.Logger

	state atomic.Int32
	gate  injectionGate

	mu         sync.Mutex
	transcript []Turn
	usedNodes  []string
	suggestion script.Suggestion
	feedback   *llm.Feedback

	segmentsDone chan struct{}
	captureStop  context.CancelFunc
}

// New creates a session from the given configuration.
func New(cfg Config) (*Session, error) {
	if cfg.Detector == nil {
		return nil, fmt.Errorf("Detector is required")
	}
	if cfg.Predictor == nil {
		return nil, fmt.Errorf("Predictor is required")
	}
	if cfg.Coordinator == nil {
		return nil, fmt.Errorf("Coordinator is required")
	}
	if cfg.Transcriber == nil {
		return nil, fmt.Errorf("Transcriber is required")
	}
	if cfg.AcquireSource == nil {
		return nil, fmt.Errorf("AcquireSource is required")
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = llm.DifficultyMedium
	}
	if cfg.FeedbackTimeout <= 0 {
		cfg.FeedbackTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Session{
		cfg:    cfg,
		engine: script.NewEngine(cfg.Graph, script.RoleHuman),
		logger: cfg.Logger,
	}, nil
}

// Start begins capturing: microphone, activity detection, transcription and
// the predictive polling loop, then requests the persona's opening line so
// it speaks first. An acquisition failure aborts the start with no partial
// state left running.
func (s *Session) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateCapturing)) {
		return ErrAlreadyCapturing
	}

	s.mu.Lock()
	s.transcript = nil
	s.usedNodes = nil
	s.feedback = nil
	s.mu.Unlock()
	s.cfg.Coordinator.Reset()
	s.cfg.Detector.Reset()

	source, err := s.cfg.AcquireSource(ctx)
	if err != nil {
		s.state.Store(int32(StateIdle))
		return fmt.Errorf("acquire audio source: %w", err)
	}
	if err := s.cfg.Detector.Initialize(source); err != nil {
		s.state.Store(int32(StateIdle))
		return fmt.Errorf("initialize detector: %w", err)
	}

	captureCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.captureStop = cancel

	if err := s.cfg.Detector.Start(captureCtx); err != nil {
		s.abortStart()
		return fmt.Errorf("start detector: %w", err)
	}
	if err := s.cfg.Transcriber.Start(captureCtx); err != nil {
		s.abortStart()
		return fmt.Errorf("start transcription: %w", err)
	}

	done := make(chan struct{})
	s.segmentsDone = done
	go s.consumeSegments(done)

	s.cfg.Coordinator.StartPolling(captureCtx, s.cfg.Predictor, s.historyForLLM, s.cfg.Difficulty, func() {
		s.emit(Event{Type: EventResponseQueued, Timestamp: time.Now()})
	})

	if sug, ok := s.engine.InitialSuggestion(); ok {
		s.setSuggestion(sug)
	}

	s.emit(Event{Type: EventSessionStarted, Timestamp: time.Now()})

	// The persona opens the conversation. This path bypasses the
	// polling predictor: no human turn has happened yet.
	opening, err := s.cfg.Coordinator.GenerateInitial(captureCtx, s.historyForLLM(), s.cfg.Difficulty)
	if err != nil {
		// Non-fatal: the session runs on without an opening line.
		s.logger.Warn("opening line generation failed", slog.String("error", err.Error()))
	} else if opening != nil {
		s.cfg.Coordinator.ConsumeQueuedResponse() // claimed here, not via injection
		t := s.appendTurn(SpeakerProspect, opening.Text)
		s.speakAsync(captureCtx, t.Text)
	}

	return nil
}

// Stop ends the capture: cancels the poll loop and detector synchronously,
// finalizes transcription, appends the human's final line, releases the
// microphone, and kicks off the feedback request in the background.
func (s *Session) Stop() error {
	if !s.state.CompareAndSwap(int32(StateCapturing), int32(StateIdle)) {
		return ErrNotCapturing
	}

	s.cfg.Coordinator.StopPolling()
	if err := s.cfg.Detector.Teardown(); err != nil {
		s.logger.Warn("detector teardown failed", slog.String("error", err.Error()))
	}

	finalText, err := s.cfg.Transcriber.Stop()
	if err != nil {
		s.logger.Warn("transcription stop failed", slog.String("error", err.Error()))
	} else if strings.TrimSpace(finalText) != "" {
		s.appendTurn(SpeakerYou, finalText)
	}

	if s.captureStop != nil {
		s.captureStop()
		s.captureStop = nil
	}
	if s.segmentsDone != nil {
		select {
		case <-s.segmentsDone:
		case <-time.After(time.Second):
			// Segment channel not closed by the transcriber; don't hang stop.
		}
		s.segmentsDone = nil
	}

	// Feedback is fire-and-forget: a failure must never block or fail the
	// stop sequence.
	if s.cfg.Feedback != nil {
		transcript := s.TranscriptText()
		scriptText := s.cfg.Graph.Text()
		go s.fetchFeedback(transcript, scriptText)
	}

	s.emit(Event{Type: EventSessionStopped, Timestamp: time.Now()})
	return nil
}

// Pause freezes the session: queued responses stay queued until Resume.
func (s *Session) Pause() { s.gate.SetPaused(true) }

// Resume lifts a pause.
func (s *Session) Resume() { s.gate.SetPaused(false) }

// MaybeInjectQueued appends the queued AI response to the transcript if
// the session is neither capturing nor paused. Returns the appended turn,
// or nil when nothing was injected. The gating guarantees the AI's line
// lands only after the human's final transcript, preserving strict
// alternation even when generation finished earlier in wall-clock time.
func (s *Session) MaybeInjectQueued(ctx context.Context) *Turn {
	if s.State() == StateCapturing || s.gate.Paused() {
		return nil
	}
	resp := s.cfg.Coordinator.ConsumeQueuedResponse()
	if resp == nil {
		return nil
	}
	t := s.appendTurn(SpeakerProspect, resp.Text)
	s.speakAsync(ctx, t.Text)
	return &t
}

// SelectAlternative records the user manually picking one of the shown
// alternative lines instead of the automatic primary.
func (s *Session) SelectAlternative(text, nodeID string) {
	sug := s.engine.SelectAlternative(text, nodeID)
	s.setSuggestion(sug)
	s.markNodeUsed(nodeID)
}

// MarkLineUsed records that the user delivered the given script line, so
// the fallback suggestion path skips it.
func (s *Session) MarkLineUsed(nodeID string) {
	s.markNodeUsed(nodeID)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Transcript returns a copy of the ordered transcript so far.
func (s *Session) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// TranscriptText flattens the transcript into "Speaker: text" lines.
func (s *Session) TranscriptText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for i, t := range s.transcript {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.Speaker)
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}

// CurrentSuggestion returns the most recent script suggestion.
func (s *Session) CurrentSuggestion() script.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suggestion
}

// Feedback returns the end-of-session coaching feedback once the
// background fetch has completed.
func (s *Session) Feedback() (llm.Feedback, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feedback == nil {
		return llm.Feedback{}, false
	}
	return *s.feedback, true
}

// consumeSegments feeds live transcription into intent classification and
// the script suggestion engine.
func (s *Session) consumeSegments(done chan struct{}) {
	defer close(done)
	for seg := range s.cfg.Transcriber.Segments() {
		if !seg.IsFinal || strings.TrimSpace(seg.Text) == "" {
			continue
		}
		match := intent.Classify(seg.Text)

		s.mu.Lock()
		used := make([]string, len(s.usedNodes))
		copy(used, s.usedNodes)
		s.mu.Unlock()

		set := s.engine.Suggest(match.Key, used)
		if set.Primary != nil {
			s.setSuggestion(*set.Primary)
		}
	}
}

func (s *Session) fetchFeedback(transcript, scriptText string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FeedbackTimeout)
	defer cancel()

	fb, err := s.cfg.Feedback.GenerateFeedback(ctx, transcript, scriptText)
	if err != nil {
		s.logger.Warn("feedback generation failed", slog.String("error", err.Error()))
		s.emit(Event{Type: EventError, Timestamp: time.Now(), Err: err})
		return
	}

	s.mu.Lock()
	s.feedback = &fb
	s.mu.Unlock()
	s.emit(Event{Type: EventFeedbackReady, Timestamp: time.Now(), Feedback: &fb})
}

// abortStart unwinds a partially started capture so a failed Start leaves
// nothing running.
func (s *Session) abortStart() {
	if s.captureStop != nil {
		s.captureStop()
		s.captureStop = nil
	}
	if err := s.cfg.Detector.Teardown(); err != nil {
		s.logger.Debug("teardown during aborted start", slog.String("error", err.Error()))
	}
	s.state.Store(int32(StateIdle))
}

func (s *Session) appendTurn(speaker, text string) Turn {
	t := Turn{
		ID:        uuid.NewString(),
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now(),
	}
	s.mu.Lock()
	s.transcript = append(s.transcript, t)
	s.mu.Unlock()
	s.emit(Event{Type: EventTurnAppended, Timestamp: t.Timestamp, Turn: &t})
	return t
}

func (s *Session) speakAsync(ctx context.Context, text string) {
	if s.cfg.Speaker == nil {
		return
	}
	go func() {
		if err := s.cfg.Speaker.Speak(ctx, text, s.cfg.Voice); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("tts playback failed", slog.String("error", err.Error()))
		}
	}()
}

func (s *Session) setSuggestion(sug script.Suggestion) {
	s.mu.Lock()
	s.suggestion = sug
	s.mu.Unlock()
	s.emit(Event{Type: EventSuggestionChanged, Timestamp: time.Now(), Suggestion: &sug})
}

func (s *Session) markNodeUsed(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.usedNodes {
		if id == nodeID {
			return
		}
	}
	s.usedNodes = append(s.usedNodes, nodeID)
}

// historyForLLM maps the transcript onto the generation endpoint's message
// roles: the practicing user is "user", the persona is "assistant".
func (s *Session) historyForLLM() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, 0, len(s.transcript))
	for _, t := range s.transcript {
		role := llm.RoleUser
		if t.Speaker == SpeakerProspect {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: t.Text})
	}
	return out
}

func (s *Session) emit(e Event) {
	if s.cfg.Observer != nil {
		s.cfg.Observer.OnSessionEvent(e)
	}
}
