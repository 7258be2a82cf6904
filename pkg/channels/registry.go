package channels

import (
	"squadflow/pkg/config"
	"squadflow/pkg/convo"
	"squadflow/pkg/gateway"

	jsoniter "github.com/json-iterator/go"
)

// ChannelFactory defines the abstract interface for platform-specific
// channel creators. New platforms (e.g., Discord, Line) plug in here
// without touching the core gateway logic.
type ChannelFactory interface {
	// Create instantiates a concrete Channel implementation using the
	// provided configuration and shared system resources.
	Create(rawConfig jsoniter.RawMessage, log *convo.Log, system *config.SystemConfig) (gateway.Channel, error)
}

// channelRegistry maps platform names (e.g., "telegram") to their
// factory implementations.
var channelRegistry = make(map[string]ChannelFactory)

// RegisterChannel adds a new ChannelFactory to the global registry.
// This is typically called during the package's init() phase.
func RegisterChannel(name string, factory ChannelFactory) {
	channelRegistry[name] = factory
}

// GetChannelFactory retrieves a registered ChannelFactory by platform name.
func GetChannelFactory(name string) (ChannelFactory, bool) {
	f, ok := channelRegistry[name]
	return f, ok
}
