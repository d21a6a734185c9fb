package plugin

import (
	"testing"
)

// mockTranscriber stands in for a provider instance in registry tests.
type mockTranscriber struct {
	name string
}

func newMockTranscriber(cfg map[string]any) (any, error) {
	name := "default"
	if n, ok := cfg["name"].(string); ok {
		name = n
	}
	return &mockTranscriber{name: name}, nil
}

func TestRegistry_Register(t *testing.T) {
	r := &Registry{
		plugins: make(map[string]map[string]*Plugin),
	}

	r.Register(KindSTT, "mock", newMockTranscriber)

	if factory, ok := r.Get(KindSTT, "mock"); !ok {
		t.Error("Expected plugin to be registered")
	} else if factory == nil {
		t.Error("Expected factory to not be nil")
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := &Registry{
		plugins: make(map[string]map[string]*Plugin),
	}

	r.Register(KindSTT, "mock", newMockTranscriber)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for duplicate registration")
		}
	}()

	r.Register(KindSTT, "mock", newMockTranscriber)
}

func TestRegistry_Register_EmptyKind(t *testing.T) {
	r := &Registry{
		plugins: make(map[string]map[string]*Plugin),
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for empty kind")
		}
	}()

	r.Register("", "mock", newMockTranscriber)
}

func TestRegistry_Get_Missing(t *testing.T) {
	r := &Registry{
		plugins: make(map[string]map[string]*Plugin),
	}

	if _, ok := r.Get(KindTTS, "missing"); ok {
		t.Error("Expected missing plugin lookup to fail")
	}
}

func TestRegistry_List(t *testing.T) {
	r := &Registry{
		plugins: make(map[string]map[string]*Plugin),
	}

	r.Register(KindSTT, "zeta", newMockTranscriber)
	r.Register(KindSTT, "alpha", newMockTranscriber)
	r.Register(KindLLM, "alpha", newMockTranscriber)

	stts := r.List(KindSTT)
	if len(stts) != 2 {
		t.Fatalf("List(stt) length = %d, want 2", len(stts))
	}
	if stts[0].Name != "alpha" || stts[1].Name != "zeta" {
		t.Errorf("List(stt) not sorted by name: %s, %s", stts[0].Name, stts[1].Name)
	}

	all := r.List("")
	if len(all) != 3 {
		t.Errorf("List(\"\") length = %d, want 3", len(all))
	}

	kinds := r.ListKinds()
	if len(kinds) != 2 || kinds[0] != KindLLM || kinds[1] != KindSTT {
		t.Errorf("ListKinds() = %v, want [llm stt]", kinds)
	}
}

func TestRegistry_Clear(t *testing.T) {
	r := &Registry{
		plugins: make(map[string]map[string]*Plugin),
	}

	r.Register(KindSTT, "mock", newMockTranscriber)
	r.Clear()

	if _, ok := r.Get(KindSTT, "mock"); ok {
		t.Error("Expected registry to be empty after Clear")
	}
}
