package gateway

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"squadflow/pkg/convo"
	"squadflow/pkg/monitor"
)

// GatewayManager owns all registered channels and routes turns between
// them and the routing engine.
type GatewayManager struct {
	channels   map[string]Channel
	msgHandler MessageHandler
	monitor    monitor.Monitor
	mu         sync.RWMutex
}

// NewGatewayManager creates an empty manager.
func NewGatewayManager() *GatewayManager {
	return &GatewayManager{
		channels: make(map[string]Channel),
	}
}

// SetMessageHandler sets the core logic that consumes incoming messages.
func (g *GatewayManager) SetMessageHandler(handler MessageHandler) {
	g.msgHandler = handler
}

// SetMonitor sets the operator monitor.
func (g *GatewayManager) SetMonitor(m monitor.Monitor) {
	g.monitor = m
}

// Register adds a channel, keyed by its id.
func (g *GatewayManager) Register(c Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[c.ID()] = c
}

// GetChannel returns a registered channel by id.
func (g *GatewayManager) GetChannel(id string) (Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.channels[id]
	return c, ok
}

// StartAll starts every registered channel, passing itself in as the
// channel context.
func (g *GatewayManager) StartAll() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, c := range g.channels {
		slog.Info("Starting channel", "channel", id)
		if err := c.Start(g); err != nil {
			return fmt.Errorf("failed to start channel %s: %w", id, err)
		}
	}
	return nil
}

// StopAll stops every channel.
func (g *GatewayManager) StopAll() {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, c := range g.channels {
		slog.Info("Stopping channel", "channel", id)
		if err := c.Stop(); err != nil {
			slog.Error("Error stopping channel", "channel", id, "error", err)
		}
	}
}

// SendReply routes plain text back to the originating channel.
func (g *GatewayManager) SendReply(session SessionContext, content string) error {
	slog.Debug("Gateway reply", "channel", session.ChannelID, "user", session.Username)

	g.broadcast(monitor.MonitorMessage{
		Timestamp:   time.Now(),
		MessageType: "ASSISTANT",
		ChannelID:   session.ChannelID,
		Username:    session.Username,
		Content:     content,
	})

	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}
	return c.Send(session, content)
}

// SendTurn routes a structured conversation turn back to the
// originating channel and mirrors it to the monitor.
func (g *GatewayManager) SendTurn(session SessionContext, turn convo.Turn) error {
	g.broadcast(turnToMonitorMessage(session, turn))

	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}
	return c.SendTurn(session, turn)
}

// SendSignal forwards a control signal to channels that support it.
// Channels without signaling silently ignore it.
func (g *GatewayManager) SendSignal(session SessionContext, signal string) error {
	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}

	if sc, ok := c.(SignalingChannel); ok {
		slog.Debug("Gateway signal", "channel", session.ChannelID, "signal", signal)
		return sc.SendSignal(session, signal)
	}
	return nil
}

// OnMessage implements ChannelContext: channels deliver incoming
// messages here and the gateway forwards them to the engine handler.
func (g *GatewayManager) OnMessage(channelID string, msg *UnifiedMessage) {
	slog.Info("Gateway received message",
		"channel", channelID, "user", msg.Session.Username, "chars", len(msg.Content))

	g.broadcast(monitor.MonitorMessage{
		Timestamp:   time.Now(),
		MessageType: "USER",
		ChannelID:   channelID,
		Username:    msg.Session.Username,
		Content:     msg.Content,
	})

	if g.msgHandler != nil {
		g.msgHandler(msg)
	} else {
		slog.Warn("No message handler set")
	}
}

func (g *GatewayManager) broadcast(msg monitor.MonitorMessage) {
	if g.monitor != nil {
		g.monitor.OnMessage(msg)
	}
}

func turnToMonitorMessage(session SessionContext, turn convo.Turn) monitor.MonitorMessage {
	msg := monitor.MonitorMessage{
		Timestamp: time.Now(),
		ChannelID: session.ChannelID,
		Username:  session.Username,
		Assistant: turn.Assistant,
		Content:   turn.Text,
	}

	switch turn.Role {
	case convo.RoleUser:
		msg.MessageType = "USER"
	case convo.RoleTransfer:
		msg.MessageType = "TRANSFER"
		if turn.Transfer != nil {
			msg.Content = fmt.Sprintf("%s -> %s (%s)", turn.Transfer.Source, turn.Transfer.Target, turn.Transfer.Reason)
		}
	case convo.RoleTool:
		msg.MessageType = "TOOL"
		if turn.ToolCall != nil {
			msg.Content = fmt.Sprintf("%s(%s)", turn.ToolCall.Name, turn.ToolCall.Arguments)
		}
	case convo.RoleToolResult:
		msg.MessageType = "TOOL"
		if turn.ToolResult != nil {
			msg.Content = fmt.Sprintf("%s => %s", turn.ToolResult.Name, turn.ToolResult.Output)
		}
	case convo.RolePlan:
		msg.MessageType = "PLAN"
	default:
		msg.MessageType = "ASSISTANT"
	}
	return msg
}
