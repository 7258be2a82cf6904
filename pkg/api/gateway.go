package api

import (
	"squadflow/pkg/convo"
)

// Channel defines the standardized lifecycle interface for communication platforms.
type Channel interface {
	ID() string
	Start(ctx ChannelContext) error
	Stop() error
	Send(session SessionContext, message string) error
	// SendTurn delivers a structured conversation turn to the
	// session, for channels that render routing events (transfers,
	// tool calls) distinctly from plain text.
	SendTurn(session SessionContext, turn convo.Turn) error
}

// SignalingChannel is an optional extension of the Channel interface for
// platforms that support control signals (e.g., typing indicators, working UI).
type SignalingChannel interface {
	Channel
	// SendSignal transmits a control signal (e.g., "working", "idle",
	// "error:<message>") to the target session to change UI state.
	SendSignal(session SessionContext, signal string) error
}

// ChannelContext provides the interface for a Channel implementation to
// communicate back with the Gateway core.
type ChannelContext interface {
	MessageResponder
	OnMessage(channelID string, msg *UnifiedMessage)
}

// MessageResponder defines the capabilities for sending responses back to a channel.
type MessageResponder interface {
	SendReply(session SessionContext, content string) error
	SendTurn(session SessionContext, turn convo.Turn) error
	SendSignal(session SessionContext, signal string) error
}

// UnifiedMessage defines the standardized internal data structure for all
// incoming messages.
type UnifiedMessage struct {
	Session SessionContext // Contextual information about the source (User, Chat)
	Content string         // Standardized text content of the message
	Raw     any            // Optional storage for the original platform-specific payload object
	// Reset requests a conversation restart instead of a user turn.
	Reset bool
}

// SessionContext encapsulates identity and routing information for a specific
// conversation unit on a specific communication channel.
type SessionContext struct {
	ChannelID string // Identifier of the channel that originated the session (e.g., "telegram")
	UserID    string // Platform-specific unique identifier for the user
	ChatID    string // Platform-specific identifier for the chat or group (may match UserID for DMs)
	Username  string // Display name or nickname of the user as provided by the platform
}

// MessageProcessor defines the interface for components that can process incoming messages.
type MessageProcessor interface {
	OnMessage(msg *UnifiedMessage)
}
