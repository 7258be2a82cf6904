package gateway

import (
	"squadflow/pkg/api"
)

// Re-export types from api package via aliases so channel packages and
// the gateway share one vocabulary.
type Channel = api.Channel
type SignalingChannel = api.SignalingChannel
type MessageResponder = api.MessageResponder
type ChannelContext = api.ChannelContext
type UnifiedMessage = api.UnifiedMessage
type SessionContext = api.SessionContext

// MessageHandler is the callback that receives standardized messages.
type MessageHandler func(msg *UnifiedMessage)
