package plugin_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pitchpal/pitchpal-go/pkg/ai/llm"
	"github.com/pitchpal/pitchpal-go/pkg/ai/stt"
	"github.com/pitchpal/pitchpal-go/pkg/ai/tts"
	"github.com/pitchpal/pitchpal-go/pkg/plugin"
	_ "github.com/pitchpal/pitchpal-go/pkg/plugin/fake"   // Register fake providers
	_ "github.com/pitchpal/pitchpal-go/pkg/plugin/openai" // Register OpenAI providers
)

func TestPluginIntegration_FakeProviders(t *testing.T) {
	cases := []struct {
		kind  string
		check func(t *testing.T, instance any)
	}{
		{plugin.KindSTT, func(t *testing.T, instance any) {
			if _, ok := instance.(stt.Transcriber); !ok {
				t.Fatal("Plugin instance does not implement Transcriber")
			}
		}},
		{plugin.KindTTS, func(t *testing.T, instance any) {
			if _, ok := instance.(tts.Speaker); !ok {
				t.Fatal("Plugin instance does not implement Speaker")
			}
		}},
		{plugin.KindLLM, func(t *testing.T, instance any) {
			if _, ok := instance.(llm.Generator); !ok {
				t.Fatal("Plugin instance does not implement Generator")
			}
		}},
		{plugin.KindFeedback, func(t *testing.T, instance any) {
			if _, ok := instance.(llm.FeedbackGenerator); !ok {
				t.Fatal("Plugin instance does not implement FeedbackGenerator")
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			factory, exists := plugin.Get(tc.kind, "fake")
			if !exists {
				t.Fatalf("Fake %s plugin not found", tc.kind)
			}

			instance, err := factory(map[string]any{})
			if err != nil {
				t.Fatalf("Failed to create %s instance: %v", tc.kind, err)
			}

			tc.check(t, instance)
		})
	}
}

func TestPluginIntegration_FakeGeneratorResponses(t *testing.T) {
	factory, exists := plugin.Get(plugin.KindLLM, "fake")
	if !exists {
		t.Fatal("Fake LLM plugin not found")
	}

	instance, err := factory(map[string]any{
		"responses": []string{"Canned reply"},
	})
	if err != nil {
		t.Fatalf("Failed to create LLM instance: %v", err)
	}

	gen, ok := instance.(llm.Generator)
	if !ok {
		t.Fatal("Plugin instance does not implement Generator")
	}

	text, err := gen.GenerateResponse(context.Background(), nil, llm.DifficultyEasy)
	if err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}
	if text != "Canned reply" {
		t.Errorf("Expected configured canned reply, got %q", text)
	}
}

func TestPluginIntegration_OpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	for _, kind := range []string{plugin.KindSTT, plugin.KindTTS, plugin.KindLLM, plugin.KindFeedback} {
		factory, exists := plugin.Get(kind, "openai")
		if !exists {
			t.Fatalf("OpenAI %s plugin not found", kind)
		}

		_, err := factory(map[string]any{})
		if err == nil {
			t.Errorf("Expected error when creating OpenAI %s without API key", kind)
			continue
		}
		if !strings.Contains(err.Error(), "OpenAI API key is required") {
			t.Errorf("Unexpected error for %s: %v", kind, err)
		}

		if _, err := factory(map[string]any{"api_key": "test-key"}); err != nil {
			t.Errorf("Failed to create OpenAI %s with API key: %v", kind, err)
		}
	}
}

func TestPluginIntegration_PluginListing(t *testing.T) {
	allPlugins := plugin.List("")
	if len(allPlugins) < 8 {
		t.Errorf("Expected at least 8 plugins (4 fake + 4 openai), got %d", len(allPlugins))
	}

	sttPlugins := plugin.List(plugin.KindSTT)
	names := make(map[string]bool)
	for _, p := range sttPlugins {
		names[p.Name] = true
	}
	if !names["fake"] || !names["openai"] {
		t.Errorf("Expected fake and openai STT plugins, got %v", names)
	}

	if got := plugin.List("nonexistent"); len(got) != 0 {
		t.Errorf("Expected 0 plugins for non-existent kind, got %d", len(got))
	}
}
