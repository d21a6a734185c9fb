package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pitchpal/pitchpal-go/internal/worker"
	"github.com/pitchpal/pitchpal-go/pkg/ai/llm"
	"github.com/pitchpal/pitchpal-go/pkg/ai/stt"
	"github.com/pitchpal/pitchpal-go/pkg/ai/tts"
	"github.com/pitchpal/pitchpal-go/pkg/ai/vad"
	"github.com/pitchpal/pitchpal-go/pkg/audio/wav"
	"github.com/pitchpal/pitchpal-go/pkg/plugin"
	"github.com/pitchpal/pitchpal-go/pkg/respond"
	"github.com/pitchpal/pitchpal-go/pkg/rtc"
	"github.com/pitchpal/pitchpal-go/pkg/script"
	"github.com/pitchpal/pitchpal-go/pkg/session"
	"github.com/pitchpal/pitchpal-go/pkg/turn"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a practice session over a recorded WAV file",
	Long: `Replay a recorded WAV file through a full practice session: speech
activity detection, live transcription, predictive prospect responses,
script suggestions, and end-of-call feedback. Use --provider fake for a
fully offline run, or --provider openai with OPENAI_API_KEY set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		audioPath, _ := cmd.Flags().GetString("audio")
		provider, _ := cmd.Flags().GetString("provider")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		scriptPath, _ := cmd.Flags().GetString("script")
		sensitivity, _ := cmd.Flags().GetInt("sensitivity")
		voice, _ := cmd.Flags().GetString("voice")
		speechOut, _ := cmd.Flags().GetString("speech-out")
		syncURL, _ := cmd.Flags().GetString("sync-url")
		syncToken, _ := cmd.Flags().GetString("sync-token")

		logger := setupLogger()

		diff, err := parseDifficulty(difficulty)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return runPractice(ctx, practiceOptions{
			AudioPath:   audioPath,
			Provider:    provider,
			Difficulty:  diff,
			ScriptPath:  scriptPath,
			Sensitivity: sensitivity,
			Voice:       voice,
			SpeechOut:   speechOut,
			SyncURL:     syncURL,
			SyncToken:   syncToken,
		}, logger)
	},
}

type practiceOptions struct {
	AudioPath   string
	Provider    string
	Difficulty  llm.Difficulty
	ScriptPath  string
	Sensitivity int
	Voice       string
	SpeechOut   string
	SyncURL     string
	SyncToken   string
}

func runPractice(ctx context.Context, opts practiceOptions, logger *slog.Logger) error {
	graph, err := loadGraph(opts.ScriptPath)
	if err != nil {
		return err
	}

	reader, err := wav.NewReader(opts.AudioPath)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	frames, err := reader.ReadFrames()
	reader.Close()
	if err != nil {
		return fmt.Errorf("read recording: %w", err)
	}
	logger.Info("Loaded recording",
		slog.String("file", opts.AudioPath),
		slog.Int("frames", len(frames)),
		slog.Duration("duration", time.Duration(len(frames))*10*time.Millisecond))

	source := wav.NewSourceFromFrames(frames)

	// Playback sink for synthesized prospect speech. OpenAI speech comes
	// back as 24kHz mono PCM.
	ttsConfig := map[string]any{}
	var speechWriter *wav.Writer
	if opts.SpeechOut != "" {
		speechWriter, err = wav.NewWriter(opts.SpeechOut, 24000, 1)
		if err != nil {
			return fmt.Errorf("create speech output: %w", err)
		}
		defer speechWriter.Close()
		ttsConfig["sink"] = speechWriter
	}

	transcriber, speaker, generator, feedbackGen, err := resolveProviders(opts.Provider, ttsConfig)
	if err != nil {
		return err
	}

	detector := vad.New(vad.Config{
		Sensitivity: opts.Sensitivity,
		Logger:      logger,
	})
	predictor := turn.NewPredictor(detector, 0)
	coordinator := respond.NewCoordinator(generator, respond.Config{Logger: logger})

	sess, err := session.New(session.Config{
		Detector:    detector,
		Predictor:   predictor,
		Coordinator: coordinator,
		Transcriber: transcriber,
		Speaker:     speaker,
		Feedback:    feedbackGen,
		AcquireSource: func(ctx context.Context) (vad.FrameSource, error) {
			return source, nil
		},
		Graph:      graph,
		Difficulty: opts.Difficulty,
		Voice:      tts.VoiceParams{Voice: opts.Voice},
		Observer: session.ObserverFunc(func(e session.Event) {
			logger.Debug("Session event", slog.String("type", e.Type.String()))
		}),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	var syncWorker *worker.Worker
	if opts.SyncURL != "" {
		syncWorker = worker.New(worker.Config{URL: opts.SyncURL, Token: opts.SyncToken}, logger)
		go func() {
			if err := syncWorker.Run(ctx); err != nil {
				logger.Error("Backend sync failed", slog.String("error", err.Error()))
			}
		}()
	}

	startedAt := time.Now()
	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	// Feed the recording to the transcriber in real time if it consumes
	// pushed frames (the Whisper provider does; the fake does not).
	if fw, ok := transcriber.(stt.FrameWriter); ok {
		go feedFrames(ctx, fw, frames, logger)
	}

	// Let the session run for the length of the recording plus enough
	// trailing silence for the final turn to be predicted and generated.
	runFor := time.Duration(len(frames))*10*time.Millisecond + 2*time.Second
	select {
	case <-time.After(runFor):
	case <-ctx.Done():
		logger.Info("Interrupted, stopping session")
	}

	if err := sess.Stop(); err != nil {
		return fmt.Errorf("stop session: %w", err)
	}

	// A response generated near the end may still be queued; now that
	// capture has stopped it can be injected.
	if t := sess.MaybeInjectQueued(context.Background()); t != nil {
		logger.Info("Injected queued prospect line", slog.String("text", t.Text))
	}

	printResults(sess)

	if syncWorker != nil {
		uploadResults(sess, syncWorker, opts.Difficulty, startedAt, logger)
	}

	return nil
}

// resolveProviders builds the provider set from the plugin registry.
func resolveProviders(name string, ttsConfig map[string]any) (stt.Transcriber, tts.Speaker, llm.Generator, llm.FeedbackGenerator, error) {
	sttAny, err := providerInstance(plugin.KindSTT, name, map[string]any{})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	transcriber, ok := sttAny.(stt.Transcriber)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("%s stt provider does not implement Transcriber", name)
	}

	ttsAny, err := providerInstance(plugin.KindTTS, name, ttsConfig)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	speaker, ok := ttsAny.(tts.Speaker)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("%s tts provider does not implement Speaker", name)
	}

	llmAny, err := providerInstance(plugin.KindLLM, name, map[string]any{})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	generator, ok := llmAny.(llm.Generator)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("%s llm provider does not implement Generator", name)
	}

	fbAny, err := providerInstance(plugin.KindFeedback, name, map[string]any{})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	feedbackGen, ok := fbAny.(llm.FeedbackGenerator)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("%s feedback provider does not implement FeedbackGenerator", name)
	}

	return transcriber, speaker, generator, feedbackGen, nil
}

func providerInstance(kind, name string, cfg map[string]any) (any, error) {
	factory, ok := plugin.Get(kind, name)
	if !ok {
		return nil, fmt.Errorf("no %s provider named %q (see 'pitchpal plugins')", kind, name)
	}
	return factory(cfg)
}

// feedFrames pushes recorded frames to the transcriber at real-time pace.
func feedFrames(ctx context.Context, fw stt.FrameWriter, frames []rtc.AudioFrame, logger *slog.Logger) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for _, frame := range frames {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fw.Push(frame); err != nil {
				logger.Debug("Frame push stopped", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func printResults(sess *session.Session) {
	fmt.Println("--- Transcript ---")
	fmt.Println(sess.TranscriptText())

	if sug := sess.CurrentSuggestion(); sug.Text != "" {
		fmt.Println("--- Suggested next line ---")
		fmt.Printf("%s (confidence %d, %s)\n", sug.Text, sug.Confidence, sug.Reason)
	}

	// Feedback is requested in the background at stop; give it a moment.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if fb, ok := sess.Feedback(); ok {
			fmt.Println("--- Feedback ---")
			for _, s := range fb.Strengths {
				fmt.Printf("  + %s\n", s)
			}
			for _, i := range fb.Improvements {
				fmt.Printf("  - %s\n", i)
			}
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func uploadResults(sess *session.Session, w *worker.Worker, difficulty llm.Difficulty, startedAt time.Time, logger *slog.Logger) {
	transcript := sess.Transcript()
	for _, t := range transcript {
		if err := w.EnqueueTurn(t); err != nil {
			logger.Warn("Turn upload dropped", slog.String("error", err.Error()))
		}
	}

	result := worker.SessionResult{
		SessionID:  uuid.NewString(),
		Difficulty: difficulty,
		Transcript: transcript,
		StartedAt:  startedAt,
		EndedAt:    time.Now(),
	}
	if fb, ok := sess.Feedback(); ok {
		result.Feedback = &fb
	}
	if err := w.EnqueueResult(result); err != nil {
		logger.Warn("Result upload dropped", slog.String("error", err.Error()))
	}

	// Give the writer goroutine a moment to drain the upload buffer.
	time.Sleep(500 * time.Millisecond)
}

func parseDifficulty(s string) (llm.Difficulty, error) {
	switch llm.Difficulty(s) {
	case llm.DifficultyEasy, llm.DifficultyMedium, llm.DifficultyHard:
		return llm.Difficulty(s), nil
	default:
		return "", fmt.Errorf("invalid difficulty %q (want easy, medium or hard)", s)
	}
}

// loadGraph reads a script graph from a JSON file, or returns the built-in
// cold-call script when no path is given.
func loadGraph(path string) (script.Graph, error) {
	if path == "" {
		return defaultGraph(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return script.Graph{}, fmt.Errorf("read script: %w", err)
	}

	var raw struct {
		Nodes []struct {
			ID        string `json:"id"`
			Role      string `json:"role"`
			Text      string `json:"text"`
			IntentTag string `json:"intentTag,omitempty"`
		} `json:"nodes"`
		Edges []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"edges"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return script.Graph{}, fmt.Errorf("parse script: %w", err)
	}

	var g script.Graph
	for _, n := range raw.Nodes {
		g.Nodes = append(g.Nodes, script.Node{
			ID:        n.ID,
			Role:      script.Role(n.Role),
			Text:      n.Text,
			IntentTag: n.IntentTag,
		})
	}
	for _, e := range raw.Edges {
		g.Edges = append(g.Edges, script.Edge{From: e.From, To: e.To})
	}
	return g, nil
}

// defaultGraph is a small built-in cold-call script so 'run' works out of
// the box.
func defaultGraph() script.Graph {
	return script.Graph{
		Nodes: []script.Node{
			{ID: "open", Role: script.RoleHuman, Text: "Hi, this is Sam from Acme. Did I catch you at an okay time?"},
			{ID: "p-busy", Role: script.RolePersona, Text: "I'm pretty busy right now.", IntentTag: "time_objection"},
			{ID: "h-busy", Role: script.RoleHuman, Text: "I'll be quick, thirty seconds and you can decide if it's worth more.", IntentTag: "time_objection"},
			{ID: "p-price", Role: script.RolePersona, Text: "What does this cost?", IntentTag: "price_objection"},
			{ID: "h-price", Role: script.RoleHuman, Text: "Most teams your size spend less than one lost deal a quarter on it.", IntentTag: "price_objection"},
			{ID: "h-value", Role: script.RoleHuman, Text: "We help sales teams cut ramp time in half. Who runs onboarding on your side?"},
			{ID: "h-close", Role: script.RoleHuman, Text: "How about a fifteen minute walkthrough on Thursday?"},
		},
		Edges: []script.Edge{
			{From: "open", To: "p-busy"},
			{From: "p-busy", To: "h-busy"},
			{From: "h-busy", To: "p-price"},
			{From: "p-price", To: "h-price"},
			{From: "h-price", To: "h-value"},
			{From: "h-value", To: "h-close"},
		},
	}
}

func init() {
	runCmd.Flags().String("audio", "", "Path to the recorded practice WAV file")
	runCmd.Flags().String("provider", "fake", "Provider set to use (fake, openai)")
	runCmd.Flags().String("difficulty", "medium", "Prospect difficulty (easy, medium, hard)")
	runCmd.Flags().String("script", "", "Path to a script graph JSON file (default: built-in cold-call script)")
	runCmd.Flags().Int("sensitivity", vad.DefaultSensitivity, "Silence detection sensitivity (0-100)")
	runCmd.Flags().String("voice", "", "Voice for synthesized prospect speech")
	runCmd.Flags().String("speech-out", "", "WAV file to capture synthesized prospect speech")
	runCmd.Flags().String("sync-url", "", "Coaching backend WebSocket URL for result upload")
	runCmd.Flags().String("sync-token", "", "Coaching backend token")

	runCmd.MarkFlagRequired("audio")
}
