package ollamalm

import (
	"log/slog"

	"squadflow/pkg/config"
	"squadflow/pkg/llm"
)

// OllamaFactory handles creation of Ollama Clients
type OllamaFactory struct{}

// Create implements ProviderFactory
func (f *OllamaFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.Client, error) {
	var clients []llm.Client

	baseURL := cfg.BaseURL
	if baseURL == "" && sys != nil {
		baseURL = sys.OllamaDefaultURL
	}

	for _, model := range cfg.Models {
		client, err := NewOllamaClient(model, baseURL, cfg.Options)
		if err != nil {
			slog.Error("Failed to create Ollama client", "model", model, "error", err)
			continue
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("ollama", &OllamaFactory{})
}
