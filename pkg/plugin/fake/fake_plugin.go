// Package fake registers the fake provider implementations with the plugin
// registry so the CLI can run full practice sessions without network access.
package fake

import (
	llmfake "github.com/pitchpal/pitchpal-go/pkg/ai/llm/fake"
	sttfake "github.com/pitchpal/pitchpal-go/pkg/ai/stt/fake"
	ttsfake "github.com/pitchpal/pitchpal-go/pkg/ai/tts/fake"
	"github.com/pitchpal/pitchpal-go/pkg/plugin"
)

// newFakeTranscriber creates a fake transcriber from configuration.
func newFakeTranscriber(cfg map[string]any) (any, error) {
	return sttfake.NewFakeTranscriber(), nil
}

// newFakeSpeaker creates a fake speaker from configuration.
func newFakeSpeaker(cfg map[string]any) (any, error) {
	return ttsfake.NewFakeSpeaker(), nil
}

// newFakeGenerator creates a fake response generator from configuration.
func newFakeGenerator(cfg map[string]any) (any, error) {
	responses := []string{
		"I'm listening, go on.",
		"That sounds expensive. What does it cost?",
		"Alright, send me the details.",
	}
	if r, ok := cfg["responses"].([]string); ok && len(r) > 0 {
		responses = r
	}
	return llmfake.NewFakeGenerator(responses...), nil
}

// newFakeFeedback creates a fake feedback generator from configuration.
func newFakeFeedback(cfg map[string]any) (any, error) {
	return llmfake.NewFakeFeedback(), nil
}

func init() {
	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindSTT,
		Name:        "fake",
		Factory:     newFakeTranscriber,
		Description: "Fake transcriber for testing and development",
		Version:     "1.0.0",
		Config:      map[string]any{},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindTTS,
		Name:        "fake",
		Factory:     newFakeSpeaker,
		Description: "Fake speaker for testing and development",
		Version:     "1.0.0",
		Config:      map[string]any{},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindLLM,
		Name:        "fake",
		Factory:     newFakeGenerator,
		Description: "Fake prospect persona cycling canned replies",
		Version:     "1.0.0",
		Config: map[string]any{
			"responses": "Optional []string of canned replies",
		},
	})

	plugin.RegisterWithMetadata(&plugin.Plugin{
		Kind:        plugin.KindFeedback,
		Name:        "fake",
		Factory:     newFakeFeedback,
		Description: "Fake coaching feedback for testing and development",
		Version:     "1.0.0",
		Config:      map[string]any{},
	})
}
