package openailm

import (
	"log/slog"

	"squadflow/pkg/config"
	"squadflow/pkg/llm"
)

// OpenAIFactory handles creation of OpenAI Clients
type OpenAIFactory struct{}

// Create implements ProviderFactory
func (f *OpenAIFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.Client, error) {
	var clients []llm.Client

	apiKey := ""
	if len(cfg.APIKeys) > 0 {
		apiKey = cfg.APIKeys[0]
	}

	for _, model := range cfg.Models {
		client, err := NewClient("openai", apiKey, model, cfg.BaseURL, cfg.Options)
		if err != nil {
			slog.Error("Failed to create OpenAI client", "model", model, "error", err)
			continue
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("openai", &OpenAIFactory{})
}
