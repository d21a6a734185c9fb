// Package worker maintains the connection to the hosted coaching backend
// and uploads practice results: transcript turns as they are produced and
// the session summary at the end of a run. The backend is an external
// collaborator; persistence schema and retry policy live on its side.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/pitchpal/pitchpal-go/pkg/ai/llm"
	"github.com/pitchpal/pitchpal-go/pkg/session"
)

// Signal and command type constants
const (
	SignalTypePing     = "ping"
	SignalTypePong     = "pong"
	SignalTypeAck      = "ack"
	SignalTypeShutdown = "shutdown"

	CommandTypeTurn   = "turn"
	CommandTypeResult = "sessionResult"
)

// SessionResult is the end-of-session payload persisted by the backend.
type SessionResult struct {
	SessionID  string         `json:"sessionId"`
	Difficulty llm.Difficulty `json:"difficulty"`
	Transcript []session.Turn `json:"transcript"`
	Feedback   *llm.Feedback  `json:"feedback,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	EndedAt    time.Time      `json:"endedAt"`
}

type Worker struct {
	url            string
	token          string
	wsClient       *WebSocketClient
	logger         *slog.Logger
	in             chan *Signal
	out            chan *Command
	mu             sync.RWMutex
	connected      bool
	backoffAttempt int
}

type Config struct {
	URL   string
	Token string
}

func New(config Config, logger *slog.Logger) *Worker {
	return &Worker{
		url:      config.URL,
		token:    config.Token,
		logger:   logger,
		in:       make(chan *Signal, 100),
		out:      make(chan *Command, 100),
		wsClient: NewWebSocketClient(config.URL, config.Token, logger),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Starting backend sync worker", slog.String("url", w.url))

	// Main worker loop with reconnection
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Backend sync worker shutting down")
			return w.shutdown()
		default:
			if err := w.connectAndRun(ctx); err != nil {
				w.logger.Error("Backend connection failed", slog.String("error", err.Error()))

				// Exponential backoff with a 10s cap
				if err := w.backoffDelay(ctx); err != nil {
					return err
				}
				continue
			}
		}
	}
}

// EnqueueTurn queues one transcript turn for upload. Returns an error when
// the upload buffer is full rather than blocking the session.
func (w *Worker) EnqueueTurn(t session.Turn) error {
	cmd := &Command{
		Type: CommandTypeTurn,
		Data: map[string]any{
			"id":        t.ID,
			"speaker":   t.Speaker,
			"text":      t.Text,
			"timestamp": t.Timestamp.UnixMilli(),
		},
	}
	select {
	case w.out <- cmd:
		return nil
	default:
		return fmt.Errorf("upload buffer full, dropping turn %s", t.ID)
	}
}

// EnqueueResult queues the end-of-session summary for upload.
func (w *Worker) EnqueueResult(res SessionResult) error {
	cmd := &Command{
		Type: CommandTypeResult,
		Data: map[string]any{"result": res},
	}
	select {
	case w.out <- cmd:
		return nil
	default:
		return fmt.Errorf("upload buffer full, dropping result for session %s", res.SessionID)
	}
}

func (w *Worker) connectAndRun(ctx context.Context) error {
	w.logger.Info("Connecting to coaching backend")

	if err := w.wsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		if err := w.wsClient.Close(); err != nil {
			w.logger.Error("Error closing WebSocket during cleanup", slog.String("error", err.Error()))
		}
	}()

	w.setConnected(true)
	defer w.setConnected(false)
	w.resetBackoff()

	readCtx, readCancel := context.WithCancel(ctx)
	defer readCancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.readSignals(readCtx); err != nil {
			errCh <- fmt.Errorf("read signals: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.writeCommands(readCtx); err != nil {
			errCh <- fmt.Errorf("write commands: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.processSignals(readCtx)
	}()

	select {
	case err := <-errCh:
		readCancel()
		wg.Wait()
		return err
	case <-ctx.Done():
		readCancel()
		wg.Wait()
		return nil
	}
}

func (w *Worker) readSignals(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			signal, err := w.wsClient.ReadSignal(ctx)
			if err != nil {
				return err
			}

			select {
			case w.in <- signal:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (w *Worker) writeCommands(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-w.out:
			if err := w.wsClient.WriteCommand(ctx, cmd); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) processSignals(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-w.in:
			w.handleSignal(ctx, signal)
		}
	}
}

func (w *Worker) handleSignal(ctx context.Context, signal *Signal) {
	w.logger.Debug("Processing signal", slog.String("type", signal.Type))

	switch signal.Type {
	case SignalTypePing:
		pong := &Command{
			Type: SignalTypePong,
			Data: signal.Data,
		}
		select {
		case w.out <- pong:
		case <-ctx.Done():
		default:
			// Channel is closed or full, skip sending
		}

	case SignalTypeAck:
		// Backend confirmed a persisted command; nothing to do.

	case SignalTypeShutdown:
		w.logger.Info("Received shutdown signal")
		// Graceful shutdown is handled by context cancellation.

	default:
		w.logger.Warn("Unknown signal type", slog.String("type", signal.Type))
	}
}

func (w *Worker) backoffDelay(ctx context.Context) error {
	w.mu.Lock()
	w.backoffAttempt++
	attempt := w.backoffAttempt
	w.mu.Unlock()

	// Exponential backoff: 1s, 2s, 4s, 8s, up to 10s max
	delay := time.Duration(math.Min(math.Pow(2, float64(attempt-1)), 10)) * time.Second

	w.logger.Info("Reconnecting with backoff",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (w *Worker) resetBackoff() {
	w.mu.Lock()
	w.backoffAttempt = 0
	w.mu.Unlock()
}

func (w *Worker) setConnected(connected bool) {
	w.mu.Lock()
	w.connected = connected
	w.mu.Unlock()
}

func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *Worker) shutdown() error {
	return w.wsClient.Close()
}
