package telegram

import (
	"fmt"

	"squadflow/pkg/channels"
	"squadflow/pkg/config"
	"squadflow/pkg/convo"
	"squadflow/pkg/gateway"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TelegramFactory builds Telegram channels
type TelegramFactory struct{}

// Create implements ChannelFactory
func (f *TelegramFactory) Create(rawConfig jsoniter.RawMessage, log *convo.Log, system *config.SystemConfig) (gateway.Channel, error) {
	var tgCfg TelegramConfig
	if err := json.Unmarshal(rawConfig, &tgCfg); err != nil {
		return nil, fmt.Errorf("failed to parse telegram config: %w", err)
	}

	if tgCfg.Token == "" {
		return nil, fmt.Errorf("missing telegram token")
	}

	return NewTelegramChannel(tgCfg, system.TelegramMessageLimit)
}

func init() {
	channels.RegisterChannel("telegram", &TelegramFactory{})
}
