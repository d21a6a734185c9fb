// Package respond orchestrates predictive, debounced generation of the AI
// persona's next turn. While the human is still mid-pause the coordinator
// already asks the generation endpoint for a reply, hiding network latency;
// the reply waits in a single queued slot until the session controller
// consumes it.
package respond

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pitchpal/pitchpal-go/pkg/ai/llm"
	"github.com/pitchpal/pitchpal-go/pkg/turn"
)

const (
	// DefaultDebounceWindow is the minimum spacing between generation
	// attempts. Best-effort rate limit, not a correctness lock.
	DefaultDebounceWindow = 300 * time.Millisecond
	// DefaultPollInterval is the cadence of the turn-completion poll.
	DefaultPollInterval = 200 * time.Millisecond
	// DefaultGenerationTimeout bounds a single endpoint call so a hung
	// request cannot leave the coordinator generating forever.
	DefaultGenerationTimeout = 30 * time.Second

	// SpeakerAI labels queued responses in the transcript.
	SpeakerAI = "AI"
)

// QueuedResponse is a single pending AI turn awaiting injection into the
// transcript. At most one is outstanding at a time; a newer response
// overwrites an unconsumed older one.
type QueuedResponse struct {
	ID         string
	Speaker    string
	Text       string
	Timestamp  time.Time
	Difficulty llm.Difficulty
}

// HistoryFunc supplies the current conversation history at the moment a
// generation is dispatched.
type HistoryFunc func() []llm.Message

// Config configures a Coordinator. Zero values take the defaults above.
type Config struct {
	DebounceWindow    time.Duration
	PollInterval      time.Duration
	GenerationTimeout time.Duration
	Logger            *slog.Logger
	Now               func() time.Time
}

// Coordinator drives debounced response generation and hands each response
// off exactly once. Safe for concurrent use: the polling goroutine writes
// the queued slot while the session controller consumes it.
type Coordinator struct {
	gen        llm.Generator
	debounce   time.Duration
	pollEvery  time.Duration
	genTimeout time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu               sync.Mutex
	lastGenerationAt time.Time
	generating       bool
	queued           *QueuedResponse
	history          []QueuedResponse
	lastErr          error

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// NewCoordinator creates a Coordinator over the given generation endpoint.
func NewCoordinator(gen llm.Generator, cfg Config) *Coordinator {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{
		gen:        gen,
		debounce:   cfg.DebounceWindow,
		pollEvery:  cfg.PollInterval,
		genTimeout: cfg.GenerationTimeout,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// GenerateResponse asks the endpoint for the persona's next turn and
// queues it. Returns (nil, nil) when suppressed by the debounce window.
// Endpoint failures are returned and recorded but never retried here; the
// next poll cycle may try again once the debounce window reopens.
func (c *Coordinator) GenerateResponse(ctx context.Context, history []llm.Message, difficulty llm.Difficulty) (*QueuedResponse, error) {
	c.mu.Lock()
	now := c.now()
	if now.Sub(c.lastGenerationAt) < c.debounce {
		c.mu.Unlock()
		return nil, nil
	}
	// The timestamp advances before the endpoint call is issued, closing
	// the window where two near-simultaneous poll ticks both dispatch.
	// A failed call still uses up the window.
	c.lastGenerationAt = now
	c.generating = true
	c.mu.Unlock()

	return c.callEndpoint(ctx, history, difficulty)
}

// GenerateInitial requests the persona's opening line. No human turn has
// happened yet, so the debounce guard is bypassed; the timestamp is still
// advanced so the poll loop doesn't immediately double up.
func (c *Coordinator) GenerateInitial(ctx context.Context, history []llm.Message, difficulty llm.Difficulty) (*QueuedResponse, error) {
	c.mu.Lock()
	c.lastGenerationAt = c.now()
	c.generating = true
	c.mu.Unlock()

	return c.callEndpoint(ctx, history, difficulty)
}

func (c *Coordinator) callEndpoint(ctx context.Context, history []llm.Message, difficulty llm.Difficulty) (*QueuedResponse, error) {
	defer func() {
		c.mu.Lock()
		c.generating = false
		c.mu.Unlock()
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.genTimeout)
	defer cancel()

	text, err := c.gen.GenerateResponse(callCtx, history, difficulty)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return nil, fmt.Errorf("response generation: %w", err)
	}

	resp := &QueuedResponse{
		ID:         uuid.NewString(),
		Speaker:    SpeakerAI,
		Text:       text,
		Timestamp:  c.now(),
		Difficulty: difficulty,
	}

	c.mu.Lock()
	// Last write wins; queue depth never exceeds one.
	c.queued = resp
	c.history = append(c.history, *resp)
	c.lastErr = nil
	c.mu.Unlock()
	return resp, nil
}

// ConsumeQueuedResponse returns the pending response and clears the slot
// in one atomic step, guaranteeing at-most-one delivery.
func (c *Coordinator) ConsumeQueuedResponse() *QueuedResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp := c.queued
	c.queued = nil
	return resp
}

// PeekQueued reports whether a response is waiting without consuming it.
func (c *Coordinator) PeekQueued() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queued != nil
}

// StartPolling launches the fixed-interval loop that watches the
// turn-completion predictor and triggers generation when a pause is judged
// long enough. onReady is a notification only; the payload is retrieved
// via ConsumeQueuedResponse.
func (c *Coordinator) StartPolling(ctx context.Context, predictor turn.Completion, history HistoryFunc, difficulty llm.Difficulty, onReady func()) {
	c.mu.Lock()
	if c.pollCancel != nil {
		c.mu.Unlock()
		return // already polling
	}
	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.pollCancel = cancel
	c.pollDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.pollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				if !predictor.PredictTurnCompletion() {
					continue
				}
				resp, err := c.GenerateResponse(pollCtx, history(), difficulty)
				if err != nil {
					c.logger.Debug("predictive generation failed", slog.String("error", err.Error()))
					continue
				}
				if resp != nil && onReady != nil {
					onReady()
				}
			}
		}
	}()
}

// StopPolling cancels the poll loop and waits for it to exit. Idempotent.
func (c *Coordinator) StopPolling() {
	c.mu.Lock()
	cancel := c.pollCancel
	done := c.pollDone
	c.pollCancel = nil
	c.pollDone = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Reset clears the queued response, history, generation flag, and debounce
// timestamp for a fresh session.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queued = nil
	c.history = nil
	c.generating = false
	c.lastErr = nil
	c.lastGenerationAt = time.Time{}
}

// IsGenerating reports whether an endpoint call is in flight.
func (c *Coordinator) IsGenerating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generating
}

// LastError returns the most recent endpoint failure, cleared by the next
// successful generation or Reset.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// History returns a copy of the append-only response log.
func (c *Coordinator) History() []QueuedResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]QueuedResponse, len(c.history))
	copy(out, c.history)
	return out
}
