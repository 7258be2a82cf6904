package channels

import (
	"log/slog"

	"squadflow/pkg/config"
	"squadflow/pkg/convo"
	"squadflow/pkg/gateway"

	jsoniter "github.com/json-iterator/go"
)

// CreateFromConfig is the central orchestration point for dynamic
// channel initialization. It iterates through the configuration map,
// resolves factories, and returns the created channels for the gateway
// builder to register and start.
func CreateFromConfig(configs map[string]jsoniter.RawMessage, log *convo.Log, system *config.SystemConfig) []gateway.Channel {
	var out []gateway.Channel

	for name, rawConfig := range configs {
		factory, ok := GetChannelFactory(name)
		if !ok {
			slog.Warn("Unknown channel type", "name", name)
			continue
		}

		channel, err := factory.Create(rawConfig, log, system)
		if err != nil {
			slog.Error("Failed to create channel", "name", name, "error", err)
			continue
		}
		if channel == nil {
			continue
		}

		out = append(out, channel)
		slog.Info("Channel created", "name", name)
	}

	return out
}
