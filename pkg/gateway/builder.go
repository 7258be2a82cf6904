package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"squadflow/pkg/api"
	"squadflow/pkg/monitor"
)

// GatewayBuilder provides a fluent interface for constructing and
// starting a GatewayManager with all its dependencies.
//
// All components (channels, engine, monitor) are pre-built and injected
// as instances. The builder only assembles and starts them.
type GatewayBuilder struct {
	gw       *GatewayManager
	monitor  monitor.Monitor
	channels []api.Channel
	engine   api.RoutingEngine
}

// NewGatewayBuilder creates a fresh builder with an empty manager.
func NewGatewayBuilder() *GatewayBuilder {
	return &GatewayBuilder{
		gw: NewGatewayManager(),
	}
}

// WithMonitor injects a monitoring implementation. It is started
// automatically during Build().
func (b *GatewayBuilder) WithMonitor(m monitor.Monitor) *GatewayBuilder {
	b.monitor = m
	return b
}

// WithChannel adds pre-built channel instances to the gateway.
func (b *GatewayBuilder) WithChannel(channels ...api.Channel) *GatewayBuilder {
	b.channels = append(b.channels, channels...)
	return b
}

// WithEngine injects the routing engine. The builder wires the gateway
// in as its responder and routes incoming messages to it.
func (b *GatewayBuilder) WithEngine(engine api.RoutingEngine) *GatewayBuilder {
	b.engine = engine
	return b
}

// Build finalizes the configuration, registers all channels, and starts
// everything. Returns the operational manager or an error.
func (b *GatewayBuilder) Build() (*GatewayManager, error) {
	if b.monitor != nil {
		b.gw.SetMonitor(b.monitor)
		if err := b.monitor.Start(); err != nil {
			return nil, fmt.Errorf("failed to start monitor: %w", err)
		}
	}

	for _, c := range b.channels {
		b.gw.Register(c)
	}

	if b.engine != nil {
		b.engine.SetResponder(b.gw)
		engine := b.engine
		b.gw.SetMessageHandler(func(msg *UnifiedMessage) {
			if err := engine.HandleMessage(context.Background(), msg); err != nil {
				slog.Error("Engine failed to handle message", "channel", msg.Session.ChannelID, "error", err)
			}
		})
	}

	if err := b.gw.StartAll(); err != nil {
		return nil, fmt.Errorf("failed to start channels: %w", err)
	}

	return b.gw, nil
}
