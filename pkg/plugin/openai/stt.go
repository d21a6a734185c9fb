// Package openai provides the hosted speech and language providers: Whisper
// transcription, speech synthesis and chat-completion response generation.
// All providers register themselves with the plugin registry from init().
package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pitchpal/pitchpal-go/pkg/ai"
	"github.com/pitchpal/pitchpal-go/pkg/ai/stt"
	"github.com/pitchpal/pitchpal-go/pkg/audio/wav"
	"github.com/pitchpal/pitchpal-go/pkg/rtc"
)

// DefaultFlushInterval is how often buffered audio is sent for
// transcription. Whisper has no streaming endpoint, so live transcription
// is approximated by batching.
const DefaultFlushInterval = 3 * time.Second

// Whisper rejects audio shorter than 100ms.
const minAudioDuration = 100 * time.Millisecond

// Transcriber implements live transcription over the Whisper API. Audio
// frames pushed from the capture loop are buffered and flushed on an
// interval; each flush that yields text emits one final segment.
type Transcriber struct {
	client   *openai.Client
	model    string
	language string
	interval time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	buffer     []byte
	sampleRate int
	channels   int
	finals     []string
	started    bool
	stopped    bool

	segments chan stt.Segment
	cancel   context.CancelFunc
	done     chan struct{}
}

// TranscriberConfig holds configuration for the Whisper transcriber.
type TranscriberConfig struct {
	APIKey        string
	Model         string        // Default: whisper-1
	Language      string        // Default: auto-detect (empty)
	FlushInterval time.Duration // Default: 3s
	Logger        *slog.Logger
}

// NewTranscriber creates a Whisper-backed transcriber.
func NewTranscriber(cfg TranscriberConfig) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, ai.NewFatalError(nil, "OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Transcriber{
		client:   openai.NewClient(cfg.APIKey),
		model:    model,
		language: cfg.Language,
		interval: interval,
		logger:   logger,
		segments: make(chan stt.Segment, 10),
	}, nil
}

// Start begins the background flush loop.
func (t *Transcriber) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ai.NewFatalError(nil, "transcriber already started")
	}
	t.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	go t.flushLoop(loopCtx)
	return nil
}

// Segments returns the channel of transcription results. Closed by Stop.
func (t *Transcriber) Segments() <-chan stt.Segment {
	return t.segments
}

// Push buffers one captured audio frame for the next flush.
func (t *Transcriber) Push(frame rtc.AudioFrame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return fmt.Errorf("transcriber is stopped")
	}

	if t.sampleRate == 0 {
		t.sampleRate = frame.SampleRate
		t.channels = frame.NumChannels
	}
	t.buffer = append(t.buffer, frame.Data...)
	return nil
}

// Stop flushes any remaining audio and returns the full transcript.
func (t *Transcriber) Stop() (string, error) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return "", fmt.Errorf("transcriber already stopped")
	}
	t.stopped = true
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	// Final flush outside the session context so trailing audio still
	// gets transcribed during shutdown.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	t.flush(flushCtx)

	close(t.segments)

	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.finals, " "), nil
}

func (t *Transcriber) flushLoop(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.flush(ctx)
		}
	}
}

// flush transcribes the currently buffered audio, if enough has
// accumulated, and emits the result as a final segment.
func (t *Transcriber) flush(ctx context.Context) {
	t.mu.Lock()
	pcm := t.buffer
	t.buffer = nil
	sampleRate, channels := t.sampleRate, t.channels
	t.mu.Unlock()

	if sampleRate == 0 {
		return
	}

	bytesPerSecond := sampleRate * channels * 2
	duration := time.Duration(len(pcm)) * time.Second / time.Duration(bytesPerSecond)
	if duration < minAudioDuration {
		return
	}

	text, err := t.transcribe(ctx, wav.Encode(pcm, sampleRate, channels))
	if err != nil {
		t.logger.Error("Whisper transcription failed", slog.String("error", err.Error()))
		return
	}
	if text == "" {
		return
	}

	t.mu.Lock()
	t.finals = append(t.finals, text)
	t.mu.Unlock()

	seg := stt.Segment{Text: text, IsFinal: true, Timestamp: time.Now()}
	select {
	case t.segments <- seg:
	default:
		t.logger.Warn("Dropping transcript segment, consumer not keeping up")
	}
}

func (t *Transcriber) transcribe(ctx context.Context, wavData []byte) (string, error) {
	req := openai.AudioRequest{
		Model:    t.model,
		Language: t.language,
		Format:   openai.AudioResponseFormatJSON,
		Reader:   bytes.NewReader(wavData),
		FilePath: "audio.wav",
	}

	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", ai.NewRecoverableError(err, "transcription request failed")
	}

	t.logger.Debug("Whisper transcription result", slog.String("text", resp.Text))
	return strings.TrimSpace(resp.Text), nil
}
