package provider

import (
	"fmt"
	"sync"
)

// Registry holds the configured LLM providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]LLMProvider
}

var globalProviderRegistry = &Registry{
	providers: make(map[string]LLMProvider),
}

// RegisterProvider adds a provider to the global registry.
func RegisterProvider(p LLMProvider) {
	globalProviderRegistry.mu.Lock()
	defer globalProviderRegistry.mu.Unlock()
	globalProviderRegistry.providers[p.Name()] = p
}

// GetProvider looks up a provider by name.
func GetProvider(name string) (LLMProvider, error) {
	globalProviderRegistry.mu.RLock()
	defer globalProviderRegistry.mu.RUnlock()
	p, ok := globalProviderRegistry.providers[name]
	if !ok {
		return nil, fmt.Errorf("LLM provider not found: %s", name)
	}
	return p, nil
}

// ListProviders returns the names of all registered providers.
func ListProviders() []string {
	globalProviderRegistry.mu.RLock()
	defer globalProviderRegistry.mu.RUnlock()
	names := make([]string, 0, len(globalProviderRegistry.providers))
	for name := range globalProviderRegistry.providers {
		names = append(names, name)
	}
	return names
}
