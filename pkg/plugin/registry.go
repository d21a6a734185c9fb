// Package plugin provides a registry for swappable speech and language
// providers (STT, TTS, response/feedback generation) so the application can
// switch between hosted endpoints and test doubles without changes to the
// core. Providers register themselves from init().
package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Provider kinds known to the registry.
const (
	KindSTT      = "stt"
	KindTTS      = "tts"
	KindLLM      = "llm"
	KindFeedback = "feedback"
)

// Factory creates a new provider instance from configuration.
// The returned any should be cast to the appropriate provider type
// (stt.Transcriber, tts.Speaker, llm.Generator, or llm.FeedbackGenerator).
type Factory func(cfg map[string]any) (any, error)

// Plugin represents a registered provider with its metadata.
type Plugin struct {
	Kind        string         // "stt", "tts", "llm", "feedback"
	Name        string         // Provider name (e.g., "openai", "fake")
	Factory     Factory        // Factory function to create instances
	Description string         // Human-readable description
	Version     string         // Provider version
	Config      map[string]any // Configuration schema or defaults
}

// Registry manages plugin registration and lookup.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]map[string]*Plugin // [kind][name] -> Plugin
}

// Global registry instance
var globalRegistry = &Registry{
	plugins: make(map[string]map[string]*Plugin),
}

// Register adds a plugin to the global registry.
// Typically called from init() functions in provider packages.
// Panics if a plugin with the same kind and name is already registered.
func Register(kind, name string, factory Factory) {
	globalRegistry.Register(kind, name, factory)
}

// RegisterWithMetadata adds a plugin with additional metadata to the
// global registry.
func RegisterWithMetadata(plugin *Plugin) {
	globalRegistry.RegisterWithMetadata(plugin)
}

// Get retrieves a plugin factory from the global registry.
func Get(kind, name string) (Factory, bool) {
	return globalRegistry.Get(kind, name)
}

// List returns all registered plugins of a specific kind.
// If kind is empty, returns all plugins.
func List(kind string) []*Plugin {
	return globalRegistry.List(kind)
}

// ListKinds returns all registered plugin kinds.
func ListKinds() []string {
	return globalRegistry.ListKinds()
}

// Register adds a plugin to this registry instance.
// Panics if a plugin with the same kind and name is already registered.
func (r *Registry) Register(kind, name string, factory Factory) {
	plugin := &Plugin{
		Kind:    kind,
		Name:    name,
		Factory: factory,
	}
	r.RegisterWithMetadata(plugin)
}

// RegisterWithMetadata adds a plugin with metadata to this registry
// instance. Panics if a plugin with the same kind and name is already
// registered.
func (r *Registry) RegisterWithMetadata(plugin *Plugin) {
	if plugin.Kind == "" {
		panic("plugin kind cannot be empty")
	}
	if plugin.Name == "" {
		panic("plugin name cannot be empty")
	}
	if plugin.Factory == nil {
		panic("plugin factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.plugins[plugin.Kind] == nil {
		r.plugins[plugin.Kind] = make(map[string]*Plugin)
	}

	if existing, exists := r.plugins[plugin.Kind][plugin.Name]; exists {
		panic(fmt.Sprintf("plugin %s/%s already registered (existing version: %s, new version: %s)",
			plugin.Kind, plugin.Name, existing.Version, plugin.Version))
	}

	r.plugins[plugin.Kind][plugin.Name] = plugin
}

// Get retrieves a plugin factory from this registry instance.
func (r *Registry) Get(kind, name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kindMap, exists := r.plugins[kind]
	if !exists {
		return nil, false
	}

	plugin, exists := kindMap[name]
	if !exists {
		return nil, false
	}

	return plugin.Factory, true
}

// List returns all registered plugins of a specific kind.
// If kind is empty, returns all plugins sorted by kind then name.
func (r *Registry) List(kind string) []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var plugins []*Plugin

	if kind == "" {
		for _, kindMap := range r.plugins {
			for _, plugin := range kindMap {
				plugins = append(plugins, plugin)
			}
		}
	} else {
		if kindMap, exists := r.plugins[kind]; exists {
			for _, plugin := range kindMap {
				plugins = append(plugins, plugin)
			}
		}
	}

	sort.Slice(plugins, func(i, j int) bool {
		if plugins[i].Kind != plugins[j].Kind {
			return plugins[i].Kind < plugins[j].Kind
		}
		return plugins[i].Name < plugins[j].Name
	})

	return plugins
}

// ListKinds returns all registered plugin kinds in sorted order.
func (r *Registry) ListKinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.plugins))
	for kind := range r.plugins {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)
	return kinds
}

// Clear removes all plugins from this registry instance.
// Primarily useful for testing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = make(map[string]map[string]*Plugin)
}
