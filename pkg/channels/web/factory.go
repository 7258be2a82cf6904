package web

import (
	"fmt"

	"squadflow/pkg/channels"
	"squadflow/pkg/config"
	"squadflow/pkg/convo"
	"squadflow/pkg/gateway"

	jsoniter "github.com/json-iterator/go"
)

// WebFactory builds web channels
type WebFactory struct{}

// Create implements ChannelFactory
func (f *WebFactory) Create(rawConfig jsoniter.RawMessage, log *convo.Log, system *config.SystemConfig) (gateway.Channel, error) {
	pCfg := WebConfig{Port: 8080}

	if err := json.Unmarshal(rawConfig, &pCfg); err != nil {
		return nil, fmt.Errorf("failed to parse web config: %w", err)
	}

	return NewWebChannel(pCfg, log), nil
}

func init() {
	channels.RegisterChannel("web", &WebFactory{})
}
