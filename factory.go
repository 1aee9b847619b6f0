package genfile

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderFactory creates a Provider from its configuration entry
type ProviderFactory func(spec ProviderSpec, cfg *Config) (Provider, error)

var (
	providerFactories = make(map[string]ProviderFactory)
	factoryMutex      sync.RWMutex
)

// RegisterProvider registers a provider factory under a kind name.
// Provider packages call it from init.
func RegisterProvider(kind string, factory ProviderFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	providerFactories[kind] = factory
}

// RegisteredKinds returns the registered provider kinds, sorted.
func RegisteredKinds() []string {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()

	kinds := make([]string, 0, len(providerFactories))
	for k := range providerFactories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// CreateProvider creates a provider instance from a ProviderSpec, wrapping it in a
// ReadOnlyProvider when ReadOnly is set.
func CreateProvider(spec ProviderSpec, cfg *Config) (Provider, error) {
	factoryMutex.RLock()
	factory, exists := providerFactories[spec.Kind]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("provider kind %s not registered", spec.Kind)
	}

	provider, err := factory(spec, cfg)
	if err != nil {
		return nil, fmt.Errorf("create provider %s: %w", spec.ID, err)
	}
	if spec.ReadOnly {
		provider = NewReadOnlyProvider(provider)
	}
	return provider, nil
}
