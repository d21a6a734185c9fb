package openai

import (
	"fmt"
	"os"

	"github.com/pitchpal/pitchpal-go/pkg/plugin"
)

// apiKeyFrom resolves the API key from plugin config or the environment.
func apiKeyFrom(cfg map[string]any) (string, error) {
	if key, ok := cfg["api_key"].(string); ok && key != "" {
		return key, nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY environment variable or provide api_key in config)")
}

// newTranscriber is the factory function for the Whisper transcriber.
func newTranscriber(cfg map[string]any) (any, error) {
	apiKey, err := apiKeyFrom(cfg)
	if err != nil {
		return nil, err
	}

	config := TranscriberConfig{APIKey: apiKey}
	if model, ok := cfg["model"].(string); ok {
		config.Model = model
	}
	if language, ok := cfg["language"].(string); ok {
		config.Language = language
	}

	return NewTranscriber(config)
}

// newSpeaker is the factory function for the OpenAI speaker.
func newSpeaker(cfg map[string]any) (any, error) {
	apiKey, err := apiKeyFrom(cfg)
	if err != nil {
		return nil, err
	}

	config := SpeakerConfig{APIKey: apiKey}
	if model, ok := cfg["model"].(string); ok {
		config.Model = model
	}
	if voice, ok := cfg["voice"].(string); ok {
		config.Voice = voice
	}
	if sink, ok := cfg["sink"].(SampleWriter); ok {
		config.Sink = sink
	}

	return NewSpeaker(config)
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSTT,
		Name:        "openai",
		Factory:     newTranscriber,
		Description: "OpenAI Whisper speech-to-text service",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key":  "OpenAI API key (or set OPENAI_API_KEY env var)",
			"model":    "whisper-1",
			"language": "auto-detect (leave empty) or specify language code",
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindTTS,
		Name:        "openai",
		Factory:     newSpeaker,
		Description: "OpenAI text-to-speech service",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key": "OpenAI API key (or set OPENAI_API_KEY env var)",
			"model":   "tts-1",
			"voice":   "alloy",
			"sink":    "SampleWriter receiving synthesized PCM",
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindLLM,
		Name:        "openai",
		Factory:     newGenerator,
		Description: "OpenAI chat-completion prospect persona",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key": "OpenAI API key (or set OPENAI_API_KEY env var)",
			"model":   "gpt-4o-mini",
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindFeedback,
		Name:        "openai",
		Factory:     newFeedbackGenerator,
		Description: "OpenAI chat-completion coaching feedback",
		Version:     "1.0.0",
		Config: map[string]any{
			"api_key": "OpenAI API key (or set OPENAI_API_KEY env var)",
			"model":   "gpt-4o-mini",
		},
	})
}
