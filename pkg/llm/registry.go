package llm

import (
	"squadflow/pkg/config"
)

// ProviderGroupConfig configures one group of models served by a single
// provider. API keys are consumed at construction time and never persisted.
type ProviderGroupConfig struct {
	Type    string         `json:"type"`
	APIKeys []string       `json:"api_keys,omitempty"`
	Models  []string       `json:"models"`
	BaseURL string         `json:"base_url,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// ProviderFactory builds atomic clients from a group config.
type ProviderFactory interface {
	Create(groupConfig ProviderGroupConfig, systemConfig *config.SystemConfig) ([]Client, error)
}

var providerRegistry = make(map[string]ProviderFactory)

// RegisterProvider registers a provider factory. Provider packages call
// this from init(), wired in via the autoload package.
func RegisterProvider(name string, factory ProviderFactory) {
	providerRegistry[name] = factory
}

// GetProviderFactory returns the factory registered under name.
func GetProviderFactory(name string) (ProviderFactory, bool) {
	f, ok := providerRegistry[name]
	return f, ok
}
